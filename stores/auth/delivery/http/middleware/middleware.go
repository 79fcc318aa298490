package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/delivery"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
)

type AuthMiddleware struct {
	auth       domain.AuthUseCase
	governance governance.UseCase
}

func New(auth domain.AuthUseCase, governance governance.UseCase) *AuthMiddleware {
	return &AuthMiddleware{
		auth:       auth,
		governance: governance,
	}
}

func (m *AuthMiddleware) Auth() echo.MiddlewareFunc {
	return middleware.KeyAuth(m.validateAuthToken)
}

func (m *AuthMiddleware) OptionalAuth() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(c echo.Context) bool {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			return len(auth) == 0
		},
		Validator: m.validateAuthToken,
	})
}

// IsAdmin gates a route on the governed admin address. Admin is a market
// parameter, not deploy-time config, so a SetAdmin change takes effect on
// the next request.
func (m *AuthMiddleware) IsAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Get("ctx").(ctx.Ctx)

			address := c.Get("address").(domain.Address)

			if ok, err := m.governance.IsAdmin(ctx, address); err != nil {
				return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
			} else if !ok {
				return delivery.MakeJsonResp(c, http.StatusMethodNotAllowed, "require admin privilege")
			}

			return next(c)
		}
	}
}

func (m *AuthMiddleware) validateAuthToken(key string, c echo.Context) (bool, error) {
	ctx := c.Get("ctx").(ctx.Ctx)
	if ads, err := m.auth.ParseToken(ctx, key); err != nil {
		ctx.WithFields(log.Fields{"err": err}).Error("failed to parse token")
		return false, err
	} else {
		c.Set("address", domain.Address(ads))
		return true, nil
	}
}
