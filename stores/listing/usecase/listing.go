package usecase

import (
	"math/big"

	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/base/metrics"
	"github.com/nifty-xyz/gomarket/base/ptr"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/domain/escrow"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/domain/listing"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/payments"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type ListingUseCaseCfg struct {
	DB            *statedb.DB
	ListingRepo   listing.Repo
	Collection    collection.UseCase
	Governance    governance.UseCase
	Custodian     escrow.Custodian
	Calculator    royalty.Calculator
	Bank          bank.Bank
	Distributor   *payments.Distributor
	EventRecorder domain.EventRecorder
	Clock         clock.Clock
}

type impl struct {
	db            *statedb.DB
	listingRepo   listing.Repo
	collection    collection.UseCase
	governance    governance.UseCase
	custodian     escrow.Custodian
	calculator    royalty.Calculator
	bank          bank.Bank
	distributor   *payments.Distributor
	eventRecorder domain.EventRecorder
	clock         clock.Clock
	metrics       metrics.Service
	busy          bool
}

func New(cfg *ListingUseCaseCfg) listing.UseCase {
	im := &impl{
		db:            cfg.DB,
		listingRepo:   cfg.ListingRepo,
		collection:    cfg.Collection,
		governance:    cfg.Governance,
		custodian:     cfg.Custodian,
		calculator:    cfg.Calculator,
		bank:          cfg.Bank,
		distributor:   cfg.Distributor,
		eventRecorder: cfg.EventRecorder,
		clock:         cfg.Clock,
		metrics:       metrics.New("listing"),
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	return im
}

func (im *impl) Get(c bCtx.Ctx, id domain.AssetId) (*listing.Listing, error) {
	return im.listingRepo.FindOne(c, id)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	return im.listingRepo.FindAll(c, opts...)
}

func (im *impl) requireAllowed(c bCtx.Ctx, addr domain.Address) error {
	allowed, err := im.collection.IsAllowed(c, addr)
	if err != nil {
		return err
	}
	if !allowed {
		return xerrors.Errorf("collection %s: %w", addr, domain.ErrCollectionDenied)
	}
	return nil
}

func (im *impl) List(c bCtx.Ctx, req listing.ListRequest) (*listing.Listing, error) {
	if !domain.IsPositive(req.PricePerItem) {
		return nil, domain.ErrZeroPrice
	}
	if req.Quantity == 0 {
		return nil, domain.ErrBadQuantity
	}
	if req.Private && req.AllowedBuyer.IsEmpty() {
		return nil, domain.ErrBadParamInput
	}
	l := &listing.Listing{
		Collection:   req.Collection.ToLower(),
		TokenId:      req.TokenId,
		Seller:       req.Seller.ToLower(),
		Quantity:     req.Quantity,
		PricePerItem: ptr.BigInt(req.PricePerItem),
		Private:      req.Private,
		AllowedBuyer: req.AllowedBuyer.ToLower(),
		Active:       true,
		CreatedAt:    im.clock.Now().UTC(),
	}
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		if err := im.requireAllowed(c, l.Collection); err != nil {
			return err
		}
		if existing, err := im.listingRepo.FindOne(c, l.AssetId()); err == nil && existing.Active {
			return xerrors.Errorf("listing for %s: %w", l.AssetId(), domain.ErrAlreadyExists)
		} else if err != nil && !xerrors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := im.listingRepo.Upsert(c, l); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventListingCreated,
			Collection: l.Collection,
			TokenId:    l.TokenId,
			From:       l.Seller,
			Amount:     l.PricePerItem.String(),
			Quantity:   l.Quantity,
		}); err != nil {
			return err
		}
		return im.custodian.Deposit(c, l.AssetId(), l.Seller, l.Quantity)
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":    err,
			"asset":  l.AssetId().String(),
			"seller": l.Seller,
		}).Error("failed to create listing")
		return nil, err
	}
	im.metrics.BumpSum("list.count", 1)
	return l, nil
}

// Delist stays available while the market is paused so sellers can always
// recover escrowed assets.
func (im *impl) Delist(c bCtx.Ctx, id domain.AssetId, seller domain.Address) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		l, err := im.listingRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !l.Active {
			return domain.ErrNotActive
		}
		if !l.Seller.Equals(seller) {
			return xerrors.Errorf("caller %s is not seller %s: %w", seller, l.Seller, domain.ErrNotSeller)
		}
		l.Active = false
		if err := im.listingRepo.Upsert(c, l); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventListingCancelled,
			Collection: l.Collection,
			TokenId:    l.TokenId,
			From:       l.Seller,
			Quantity:   l.Quantity,
		}); err != nil {
			return err
		}
		return im.custodian.Release(c, id, l.Seller, l.Quantity)
	})
}

func (im *impl) Deactivate(c bCtx.Ctx, id domain.AssetId) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		l, err := im.listingRepo.FindOne(c, id)
		if xerrors.Is(err, domain.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if !l.Active {
			return nil
		}
		l.Active = false
		return im.listingRepo.Upsert(c, l)
	})
}

func (im *impl) Buy(c bCtx.Ctx, id domain.AssetId, buyer domain.Address, payment *big.Int) error {
	if im.busy {
		return xerrors.Errorf("buy: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()
	defer im.metrics.BumpTime("buy.time").End()

	buyer = buyer.ToLower()
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		l, err := im.listingRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !l.Active {
			return domain.ErrNotActive
		}
		if l.Private && !l.AllowedBuyer.Equals(buyer) {
			return xerrors.Errorf("buyer %s: %w", buyer, domain.ErrNotAllowedBuyer)
		}
		total := l.TotalPrice()
		if payment == nil || payment.Cmp(total) < 0 {
			return xerrors.Errorf("payment short of %s: %w", total, domain.ErrInsufficientFunds)
		}
		// pull the payment up front, the analogue of funds arriving with the
		// call
		if err := im.bank.Transfer(c, buyer, domain.MarketAccount, payment); err != nil {
			return err
		}

		l.Active = false
		if err := im.listingRepo.Upsert(c, l); err != nil {
			return err
		}
		breakdown, err := im.calculator.ComputeSplit(c, id, total)
		if err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventListingSold,
			Collection: l.Collection,
			TokenId:    l.TokenId,
			From:       l.Seller,
			To:         buyer,
			Amount:     total.String(),
			Fee:        breakdown.Fee.String(),
			Royalty:    breakdown.Royalty.String(),
			Quantity:   l.Quantity,
		}); err != nil {
			return err
		}

		if err := im.distributor.Payout(c, l.Seller, breakdown); err != nil {
			return err
		}
		if err := im.custodian.Release(c, id, buyer, l.Quantity); err != nil {
			return err
		}
		return im.distributor.Refund(c, buyer, new(big.Int).Sub(payment, total))
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"asset": id.String(),
			"buyer": buyer,
		}).Error("failed to buy listing")
		return err
	}
	im.metrics.BumpSum("buy.count", 1)
	return nil
}

