package usecase

import (
	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type CollectionUseCaseCfg struct {
	DB             *statedb.DB
	CollectionRepo collection.Repo
	Clock          clock.Clock
}

type impl struct {
	db             *statedb.DB
	collectionRepo collection.Repo
	clock          clock.Clock
}

func New(cfg *CollectionUseCaseCfg) collection.UseCase {
	im := &impl{
		db:             cfg.DB,
		collectionRepo: cfg.CollectionRepo,
		clock:          cfg.Clock,
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	return im
}

func (im *impl) Register(c bCtx.Ctx, col *collection.Collection) error {
	if col.Address.IsEmpty() || col.Creator.IsEmpty() {
		return domain.ErrBadParamInput
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		if _, err := im.collectionRepo.FindOne(c, col.Address); err == nil {
			return xerrors.Errorf("collection %s: %w", col.Address, domain.ErrAlreadyExists)
		} else if !xerrors.Is(err, domain.ErrNotFound) {
			return err
		}
		col.Allowed = false
		col.RegisteredAt = im.clock.Now().UTC()
		if err := im.collectionRepo.Upsert(c, col); err != nil {
			c.WithFields(log.Fields{
				"err":        err,
				"collection": col.Address,
			}).Error("failed to register collection")
			return err
		}
		return nil
	})
}

func (im *impl) IsAllowed(c bCtx.Ctx, addr domain.Address) (bool, error) {
	col, err := im.collectionRepo.FindOne(c, addr)
	if err != nil {
		if xerrors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return col.Allowed, nil
}

func (im *impl) Get(c bCtx.Ctx, addr domain.Address) (*collection.Collection, error) {
	return im.collectionRepo.FindOne(c, addr)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...collection.FindAllOptionsFunc) ([]*collection.Collection, error) {
	return im.collectionRepo.FindAll(c, opts...)
}
