package usecase

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
	hcdomain "github.com/nifty-xyz/gomarket/domain/healthcheck"
)

type impl struct {
	repo hcdomain.HealthCheckRepo
}

func New(repo hcdomain.HealthCheckRepo) hcdomain.HealthCheckUseCase {
	return &impl{
		repo: repo,
	}
}

func (im *impl) Check(context ctx.Ctx) error {
	return im.repo.PingDB(context)
}
