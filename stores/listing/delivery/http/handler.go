package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/listing"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	listing listing.UseCase
}

// New registers the fixed-price listing routes. Mutations require auth; the
// authenticated address is always the acting party, callers cannot act for
// someone else.
func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, listingUC listing.UseCase) {
	h := &handler{listing: listingUC}

	g := e.Group("/listings")

	g.GET("", h.findAll)
	g.GET("/:collection/:tokenId", h.get)
	g.POST("", h.list, authMiddleware.Auth())
	g.DELETE("/:collection/:tokenId", h.delist, authMiddleware.Auth())
	g.POST("/:collection/:tokenId/buy", h.buy, authMiddleware.Auth())
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Seller     *domain.Address `query:"seller"`
		Collection *domain.Address `query:"collection"`
		ActiveOnly bool            `query:"activeOnly"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []listing.FindAllOptionsFunc{}
	if p.Seller != nil {
		opts = append(opts, listing.WithSeller(*p.Seller))
	}
	if p.Collection != nil {
		opts = append(opts, listing.WithCollection(*p.Collection))
	}
	if p.ActiveOnly {
		opts = append(opts, listing.WithActiveOnly())
	}

	if res, err := h.listing.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if res, err := h.listing.Get(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	seller := c.Get("address").(domain.Address)

	type params struct {
		Collection   domain.Address `json:"collection"`
		TokenId      domain.TokenId `json:"tokenId"`
		Quantity     uint64         `json:"quantity"`
		PricePerItem string         `json:"pricePerItem"`
		Private      bool           `json:"private"`
		AllowedBuyer domain.Address `json:"allowedBuyer"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	price, err := domain.ParseAmount(p.PricePerItem)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.listing.List(ctx, listing.ListRequest{
		Collection:   p.Collection,
		TokenId:      p.TokenId,
		Seller:       seller,
		Quantity:     p.Quantity,
		PricePerItem: price,
		Private:      p.Private,
		AllowedBuyer: p.AllowedBuyer,
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) delist(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	seller := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if err := h.listing.Delist(ctx, id, seller); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) buy(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	buyer := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	type params struct {
		Payment string `json:"payment"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	payment, err := domain.ParseAmount(p.Payment)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if err := h.listing.Buy(ctx, id, buyer, payment); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
