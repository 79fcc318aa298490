package collection

import (
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Collection is a registered asset contract. Only allowlisted collections can
// be listed, auctioned or offered on.
type Collection struct {
	Address      domain.Address `json:"address"`
	Name         string         `json:"name"`
	Creator      domain.Address `json:"creator"`
	Allowed      bool           `json:"allowed"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

type FindAllOptions struct {
	AllowedOnly bool
	Creator     *domain.Address
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithAllowedOnly() FindAllOptionsFunc {
	return func(o *FindAllOptions) error {
		o.AllowedOnly = true
		return nil
	}
}

func WithCreator(creator domain.Address) FindAllOptionsFunc {
	return func(o *FindAllOptions) error {
		creator = creator.ToLower()
		o.Creator = &creator
		return nil
	}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, addr domain.Address) (*Collection, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Collection, error)
	Upsert(ctx ctx.Ctx, c *Collection) error
}

type UseCase interface {
	// Register records a collection; it stays denied until governance allows
	// it.
	Register(ctx ctx.Ctx, c *Collection) error
	// IsAllowed reports whether the collection may be traded on the market.
	IsAllowed(ctx ctx.Ctx, addr domain.Address) (bool, error)
	Get(ctx ctx.Ctx, addr domain.Address) (*Collection, error)
	// FindAll enumerates registered collections for discovery tooling.
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Collection, error)
}
