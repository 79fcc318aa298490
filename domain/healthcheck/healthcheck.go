package healthcheck

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
)

type HealthCheckRepo interface {
	PingDB(ctx ctx.Ctx) error
}

type HealthCheckUseCase interface {
	Check(ctx ctx.Ctx) error
}
