package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	governance governance.UseCase
}

// New registers the governance surface. Direct changes and proposal queueing
// are admin-gated at the route; the usecase re-checks the caller so the HTTP
// gate is not the last line of defense. Executing a matured proposal is
// permissionless.
func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, governanceUC governance.UseCase) {
	h := &handler{governance: governanceUC}

	g := e.Group("/governance")

	g.GET("/params", h.params)
	g.GET("/proposals", h.proposals)
	g.POST("/changes", h.apply, authMiddleware.Auth(), authMiddleware.IsAdmin())
	g.POST("/proposals", h.propose, authMiddleware.Auth(), authMiddleware.IsAdmin())
	g.POST("/proposals/:id/execute", h.execute, authMiddleware.Auth())
	g.DELETE("/proposals/:id", h.cancelProposal, authMiddleware.Auth(), authMiddleware.IsAdmin())
}

type changeParams struct {
	Kind    governance.ChangeKind `json:"kind"`
	Bps     int64                 `json:"bps"`
	Address domain.Address        `json:"address"`
}

func (p *changeParams) toChange() governance.Change {
	return governance.Change{
		Kind:    p.Kind,
		Bps:     p.Bps,
		Address: p.Address,
	}
}

func (h *handler) params(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.governance.Params(ctx); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) proposals(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.governance.Proposals(ctx); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) apply(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	p := &changeParams{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.governance.Apply(ctx, caller, p.toChange()); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) propose(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	p := &changeParams{}
	if err := c.Bind(p); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if res, err := h.governance.Propose(ctx, caller, p.toChange()); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *handler) execute(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid proposal id")
	}

	if err := h.governance.Execute(ctx, caller, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) cancelProposal(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid proposal id")
	}

	if err := h.governance.CancelProposal(ctx, caller, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
