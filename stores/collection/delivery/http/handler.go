package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/middleware"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	collection collection.UseCase
}

func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, collectionUC collection.UseCase) {
	h := &handler{collection: collectionUC}

	g := e.Group("/collections")

	g.GET("", h.findAll, middleware.CacheHttp(30*time.Second))
	g.GET("/:address", h.get, middleware.IsValidAddress("address"))
	g.POST("", h.register, authMiddleware.Auth())
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		AllowedOnly bool            `query:"allowedOnly"`
		Creator     *domain.Address `query:"creator"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []collection.FindAllOptionsFunc{}
	if p.AllowedOnly {
		opts = append(opts, collection.WithAllowedOnly())
	}
	if p.Creator != nil {
		opts = append(opts, collection.WithCreator(*p.Creator))
	}

	if res, err := h.collection.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	address := domain.Address(c.Param("address"))

	if res, err := h.collection.Get(ctx, address); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	creator := c.Get("address").(domain.Address)

	type params struct {
		Address domain.Address `json:"address"`
		Name    string         `json:"name"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	col := &collection.Collection{
		Address: p.Address,
		Name:    p.Name,
		Creator: creator,
	}

	if err := h.collection.Register(ctx, col); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, col)
}
