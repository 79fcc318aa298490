package usecase

import (
	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/escrow"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type CustodianCfg struct {
	DB            *statedb.DB
	EscrowRepo    escrow.Repo
	AssetRegistry assets.Registry
	EventRecorder domain.EventRecorder
	Clock         clock.Clock
}

type impl struct {
	db            *statedb.DB
	escrowRepo    escrow.Repo
	assetRegistry assets.Registry
	eventRecorder domain.EventRecorder
	clock         clock.Clock
}

func New(cfg *CustodianCfg) escrow.Custodian {
	im := &impl{
		db:            cfg.DB,
		escrowRepo:    cfg.EscrowRepo,
		assetRegistry: cfg.AssetRegistry,
		eventRecorder: cfg.EventRecorder,
		clock:         cfg.Clock,
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	return im
}

func (im *impl) DepositorOf(c bCtx.Ctx, id domain.AssetId) (*escrow.Record, error) {
	return im.escrowRepo.FindOne(c, id)
}

func (im *impl) Deposit(c bCtx.Ctx, id domain.AssetId, from domain.Address, quantity uint64) error {
	if quantity == 0 {
		return domain.ErrBadQuantity
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		handle := im.assetRegistry.Probe(c, id.Collection)
		if handle.Kind() == assets.KindSingleUnit && quantity != 1 {
			return xerrors.Errorf("single-unit asset takes quantity 1, got %d: %w", quantity, domain.ErrBadQuantity)
		}
		balance, err := handle.Balance(c, from, id.TokenId)
		if err != nil {
			return xerrors.Errorf("balance query: %w", err)
		}
		if balance < quantity {
			return xerrors.Errorf("%s holds %d of %s, needs %d: %w", from, balance, id, quantity, domain.ErrNotOwner)
		}
		approved, err := handle.Approved(c, from, domain.MarketAccount)
		if err != nil {
			return xerrors.Errorf("approval query: %w", err)
		}
		if !approved {
			return xerrors.Errorf("market not approved by %s on %s: %w", from, id.Collection, domain.ErrNotApproved)
		}

		// custody record before the pull, so a reentrant call from the asset
		// contract already observes the asset as escrowed
		record, err := im.escrowRepo.FindOne(c, id)
		if xerrors.Is(err, domain.ErrNotFound) {
			record = &escrow.Record{
				Collection: id.Collection,
				TokenId:    id.TokenId,
				Depositor:  from.ToLower(),
				Quantity:   0,
				EscrowedAt: im.clock.Now().UTC(),
			}
		} else if err != nil {
			return err
		} else if !record.Depositor.Equals(from) {
			return xerrors.Errorf("asset %s already escrowed by %s: %w", id, record.Depositor, domain.ErrAlreadyExists)
		}
		record.Quantity += quantity
		if err := im.escrowRepo.Upsert(c, record); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventEscrowDeposited,
			Collection: id.Collection,
			TokenId:    id.TokenId,
			From:       from,
			To:         domain.MarketAccount,
			Quantity:   quantity,
		}); err != nil {
			return err
		}

		if err := handle.Transfer(c, id.TokenId, from, domain.MarketAccount, quantity); err != nil {
			c.WithFields(log.Fields{
				"err":   err,
				"asset": id.String(),
				"from":  from,
			}).Error("failed to pull asset into escrow")
			return xerrors.Errorf("escrow pull: %w", err)
		}
		// verify the outcome instead of trusting the contract's return
		got, err := handle.Balance(c, domain.MarketAccount, id.TokenId)
		if err != nil {
			return xerrors.Errorf("escrow verification: %w", err)
		}
		if got < record.Quantity {
			return xerrors.Errorf("market holds %d of %s after pull, expected %d: %w", got, id, record.Quantity, domain.ErrTransferFailed)
		}
		return nil
	})
}

func (im *impl) Release(c bCtx.Ctx, id domain.AssetId, to domain.Address, quantity uint64) error {
	if quantity == 0 {
		return domain.ErrBadQuantity
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		record, err := im.escrowRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if record.Quantity < quantity {
			return xerrors.Errorf("escrow holds %d of %s, releasing %d: %w", record.Quantity, id, quantity, domain.ErrBadQuantity)
		}
		record.Quantity -= quantity
		if record.Quantity == 0 {
			if err := im.escrowRepo.Delete(c, id); err != nil {
				return err
			}
		} else if err := im.escrowRepo.Upsert(c, record); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventEscrowReleased,
			Collection: id.Collection,
			TokenId:    id.TokenId,
			From:       domain.MarketAccount,
			To:         to,
			Quantity:   quantity,
		}); err != nil {
			return err
		}
		handle := im.assetRegistry.Probe(c, id.Collection)
		if err := handle.Transfer(c, id.TokenId, domain.MarketAccount, to, quantity); err != nil {
			c.WithFields(log.Fields{
				"err":   err,
				"asset": id.String(),
				"to":    to,
			}).Error("failed to release escrowed asset")
			return xerrors.Errorf("escrow release: %w", err)
		}
		return nil
	})
}
