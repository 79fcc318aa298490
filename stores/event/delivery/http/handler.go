package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/middleware"
)

type handler struct {
	events domain.EventRepo
}

// New registers the event history route over the authoritative in-process
// log. The mongo mirror serves offline analytics, not this API.
func New(e *echo.Echo, events domain.EventRepo) {
	h := &handler{events: events}

	e.GET("/events", h.findAll, middleware.CacheHttp(10*time.Second))
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Collection *domain.Address `query:"collection"`
		TokenId    *domain.TokenId `query:"tokenId"`
		Types      string          `query:"types"`
		Offset     int             `query:"offset"`
		Limit      int             `query:"limit"`
	}

	p := &params{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []domain.EventFindAllOptionsFunc{}
	if p.Collection != nil {
		opts = append(opts, domain.EventWithCollection(*p.Collection))
	}
	if p.TokenId != nil {
		opts = append(opts, domain.EventWithTokenId(*p.TokenId))
	}
	if len(p.Types) > 0 {
		types := []domain.EventType{}
		for _, t := range strings.Split(p.Types, ",") {
			types = append(types, domain.EventType(t))
		}
		opts = append(opts, domain.EventWithTypes(types...))
	}
	if p.Offset > 0 || p.Limit > 0 {
		opts = append(opts, domain.EventWithPagination(p.Offset, p.Limit))
	}

	if res, err := h.events.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}
