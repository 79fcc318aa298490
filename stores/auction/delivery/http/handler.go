package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/auction"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	auction auction.UseCase
}

func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, auctionUC auction.UseCase) {
	h := &handler{auction: auctionUC}

	g := e.Group("/auctions")

	g.GET("", h.findAll)
	g.GET("/:collection/:tokenId", h.get)
	g.POST("", h.create, authMiddleware.Auth())
	g.POST("/:collection/:tokenId/bids", h.placeBid, authMiddleware.Auth())
	g.DELETE("/:collection/:tokenId", h.cancel, authMiddleware.Auth())
	// ending an expired auction is permissionless
	g.POST("/:collection/:tokenId/end", h.end, authMiddleware.Auth())
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

	opts := []auction.FindAllOptionsFunc{}
	if p.Seller != nil {
		opts = append(opts, auction.WithSeller(*p.Seller))
	}
	if p.Collection != nil {
		opts = append(opts, auction.WithCollection(*p.Collection))
	}
	if p.ActiveOnly {
		opts = append(opts, auction.WithActiveOnly())
	}

	if res, err := h.auction.FindAll(ctx, opts...); err != nil {
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

	if res, err := h.auction.Get(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	seller := c.Get("address").(domain.Address)

	type params struct {
		Collection      domain.Address `json:"collection"`
		TokenId         domain.TokenId `json:"tokenId"`
		Quantity        uint64         `json:"quantity"`
		MinBid          string         `json:"minBid"`
		ReservePrice    string         `json:"reservePrice"`
		DurationSeconds int64          `json:"durationSeconds"`
		Private         bool           `json:"private"`
		AllowedBidder   domain.Address `json:"allowedBidder"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	minBid, err := domain.ParseAmount(p.MinBid)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	reserve, err := domain.ParseAmount(p.ReservePrice)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.auction.Create(ctx, auction.CreateRequest{
		Collection:    p.Collection,
		TokenId:       p.TokenId,
		Seller:        seller,
		Quantity:      p.Quantity,
		MinBid:        minBid,
		ReservePrice:  reserve,
		Duration:      time.Duration(p.DurationSeconds) * time.Second,
		Private:       p.Private,
		AllowedBidder: p.AllowedBidder,
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	bidder := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	type params struct {
		Amount string `json:"amount"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	amount, err := domain.ParseAmount(p.Amount)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if err := h.auction.PlaceBid(ctx, id, bidder, amount); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	seller := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if err := h.auction.Cancel(ctx, id, seller); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) end(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if err := h.auction.End(ctx, id, caller); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
