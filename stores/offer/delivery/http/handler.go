package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/offer"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	offer offer.UseCase
}

// New registers asset-offer and collection-offer routes. Offers are addressed
// by (asset, index); cancellation swap-removes so indices are only stable
// between reads.
func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, offerUC offer.UseCase) {
	h := &handler{offer: offerUC}

	g := e.Group("/offers")

	g.GET("/:collection/:tokenId", h.findByAsset)
	g.POST("", h.make, authMiddleware.Auth())
	g.DELETE("/:collection/:tokenId/:index", h.cancel, authMiddleware.Auth())
	g.POST("/:collection/:tokenId/:index/accept", h.accept, authMiddleware.Auth())

	cg := e.Group("/collection-offers")

	cg.GET("/:collection", h.findByCollection)
	cg.POST("", h.makeCollection, authMiddleware.Auth())
	cg.DELETE("/:collection/:index", h.cancelCollection, authMiddleware.Auth())
	cg.POST("/:collection/:index/accept", h.acceptCollection, authMiddleware.Auth())
}

func offerIndex(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("index"))
}

func (h *handler) findByAsset(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if res, err := h.offer.FindByAsset(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) make(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	offeror := c.Get("address").(domain.Address)

	type params struct {
		Collection domain.Address `json:"collection"`
		TokenId    domain.TokenId `json:"tokenId"`
		Price      string         `json:"price"`
		Quantity   uint64         `json:"quantity"`
		Deadline   time.Time      `json:"deadline"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	price, err := domain.ParseAmount(p.Price)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, index, err := h.offer.Make(ctx, offer.MakeRequest{
		Collection: p.Collection,
		TokenId:    p.TokenId,
		Offeror:    offeror,
		Price:      price,
		Quantity:   p.Quantity,
		Deadline:   p.Deadline,
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, struct {
		Offer *offer.Offer `json:"offer"`
		Index int          `json:"index"`
	}{res, index})
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	offeror := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	index, err := offerIndex(c)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid index")
	}

	if err := h.offer.Cancel(ctx, id, index, offeror); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) accept(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	acceptor := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	index, err := offerIndex(c)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid index")
	}

	if err := h.offer.Accept(ctx, id, index, acceptor); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) findByCollection(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	collection := domain.Address(c.Param("collection"))

	if res, err := h.offer.FindByCollection(ctx, collection); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) makeCollection(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	offeror := c.Get("address").(domain.Address)

	type params struct {
		Collection   domain.Address `json:"collection"`
		PricePerItem string         `json:"pricePerItem"`
		Quantity     uint64         `json:"quantity"`
		Deadline     time.Time      `json:"deadline"`
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

	res, index, err := h.offer.MakeCollection(ctx, offer.MakeCollectionRequest{
		Collection:   p.Collection,
		Offeror:      offeror,
		PricePerItem: price,
		Quantity:     p.Quantity,
		Deadline:     p.Deadline,
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, struct {
		Offer *offer.CollectionOffer `json:"offer"`
		Index int                    `json:"index"`
	}{res, index})
}

func (h *handler) cancelCollection(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	offeror := c.Get("address").(domain.Address)

	collection := domain.Address(c.Param("collection"))

	index, err := offerIndex(c)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid index")
	}

	if err := h.offer.CancelCollection(ctx, collection, index, offeror); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) acceptCollection(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	acceptor := c.Get("address").(domain.Address)

	collection := domain.Address(c.Param("collection"))

	index, err := offerIndex(c)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid index")
	}

	type params struct {
		TokenId domain.TokenId `json:"tokenId"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.offer.AcceptCollection(ctx, collection, p.TokenId, index, acceptor); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
