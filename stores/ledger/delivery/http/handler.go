package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/ledger"
	"github.com/nifty-xyz/gomarket/service/pricing"
	authMiddleware "github.com/nifty-xyz/gomarket/stores/auth/delivery/http/middleware"
)

type handler struct {
	ledger  ledger.UseCase
	pricing pricing.Service
}

// New registers the pull-payment ledger routes. Withdrawals always pay the
// authenticated address, there is no third-party withdrawal.
func New(e *echo.Echo, authMiddleware *authMiddleware.AuthMiddleware, ledgerUC ledger.UseCase, pricingSvc pricing.Service) {
	h := &handler{ledger: ledgerUC, pricing: pricingSvc}

	g := e.Group("/ledger")

	g.GET("/balance", h.balance, authMiddleware.Auth())
	g.POST("/withdraw", h.withdraw, authMiddleware.Auth())
}

func (h *handler) balance(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	beneficiary := c.Get("address").(domain.Address)

	balance, err := h.ledger.BalanceOf(ctx, beneficiary)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	res := struct {
		Balance        string `json:"balance"`
		DisplayBalance string `json:"displayBalance"`
	}{
		Balance:        balance.String(),
		DisplayBalance: h.pricing.Display(balance),
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) withdraw(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	beneficiary := c.Get("address").(domain.Address)

	amount, err := h.ledger.Withdraw(ctx, beneficiary)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	res := struct {
		Amount        string `json:"amount"`
		DisplayAmount string `json:"displayAmount"`
	}{
		Amount:        amount.String(),
		DisplayAmount: h.pricing.Display(amount),
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
