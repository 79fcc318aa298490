package domain

import (
	"github.com/golang-jwt/jwt"

	"github.com/nifty-xyz/gomarket/base/ctx"
)

type JwtCustomClaims struct {
	Address string `json:"data"`
	jwt.StandardClaims
}

// AuthUseCase issues and validates the bearer tokens callers present to
// the API. The token subject becomes the caller address every engine
// operation is authorized against.
type AuthUseCase interface {
	SignToken(ctx ctx.Ctx, address Address) (string, error)
	ParseToken(ctx ctx.Ctx, token string) (address string, err error)
}
