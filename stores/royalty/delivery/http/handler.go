package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	royalty royalty.Calculator
}

// New registers the royalty split routes. Setting a split is entitled to the
// collection creator or the admin; the usecase enforces that, so the route
// only requires a valid token.
func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, royaltyUC royalty.Calculator) {
	h := &handler{royalty: royaltyUC}

	g := e.Group("/royalties")

	g.GET("/:collection/:tokenId/split", h.getSplit)
	g.PUT("/:collection/:tokenId/split", h.setSplit, authMiddleware.Auth())
}

func (h *handler) getSplit(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	id := domain.AssetId{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if res, err := h.royalty.GetSplit(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) setSplit(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		Shares []royalty.Share `json:"shares"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	s := &royalty.Split{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
		Shares:     p.Shares,
	}

	if err := h.royalty.SetSplit(ctx, caller, s); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, s)
}
