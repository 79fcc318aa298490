package usecase

import (
	"math/big"
	"time"

	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/base/metrics"
	"github.com/nifty-xyz/gomarket/base/ptr"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/auction"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/domain/escrow"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/domain/ledger"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/payments"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

const (
	// DefaultBidIncrementBps is the minimum raise over the current highest
	// bid, preventing negligible overbids.
	DefaultBidIncrementBps = int64(500)
	// DefaultAntiSnipeWindow is both the trigger and the push: a bid landing
	// within this window of the end time extends the auction by the same
	// window.
	DefaultAntiSnipeWindow = 10 * time.Minute

	MinDuration = time.Minute
)

type AuctionUseCaseCfg struct {
	DB              *statedb.DB
	AuctionRepo     auction.Repo
	Collection      collection.UseCase
	Governance      governance.UseCase
	Custodian       escrow.Custodian
	Calculator      royalty.Calculator
	Ledger          ledger.UseCase
	Bank            bank.Bank
	Distributor     *payments.Distributor
	EventRecorder   domain.EventRecorder
	Clock           clock.Clock
	BidIncrementBps int64
	AntiSnipeWindow time.Duration
}

type impl struct {
	db              *statedb.DB
	auctionRepo     auction.Repo
	collection      collection.UseCase
	governance      governance.UseCase
	custodian       escrow.Custodian
	calculator      royalty.Calculator
	ledger          ledger.UseCase
	bank            bank.Bank
	distributor     *payments.Distributor
	eventRecorder   domain.EventRecorder
	clock           clock.Clock
	metrics         metrics.Service
	bidIncrementBps int64
	antiSnipeWindow time.Duration
	busy            bool
}

func New(cfg *AuctionUseCaseCfg) auction.UseCase {
	im := &impl{
		db:              cfg.DB,
		auctionRepo:     cfg.AuctionRepo,
		collection:      cfg.Collection,
		governance:      cfg.Governance,
		custodian:       cfg.Custodian,
		calculator:      cfg.Calculator,
		ledger:          cfg.Ledger,
		bank:            cfg.Bank,
		distributor:     cfg.Distributor,
		eventRecorder:   cfg.EventRecorder,
		clock:           cfg.Clock,
		metrics:         metrics.New("auction"),
		bidIncrementBps: cfg.BidIncrementBps,
		antiSnipeWindow: cfg.AntiSnipeWindow,
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	if im.bidIncrementBps <= 0 {
		im.bidIncrementBps = DefaultBidIncrementBps
	}
	if im.antiSnipeWindow <= 0 {
		im.antiSnipeWindow = DefaultAntiSnipeWindow
	}
	return im
}

func (im *impl) Get(c bCtx.Ctx, id domain.AssetId) (*auction.Auction, error) {
	return im.auctionRepo.FindOne(c, id)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	return im.auctionRepo.FindAll(c, opts...)
}

func (im *impl) Create(c bCtx.Ctx, req auction.CreateRequest) (*auction.Auction, error) {
	if !domain.IsPositive(req.MinBid) {
		return nil, domain.ErrZeroPrice
	}
	if req.ReservePrice != nil && req.ReservePrice.Cmp(req.MinBid) < 0 {
		return nil, xerrors.Errorf("reserve below min bid: %w", domain.ErrBadReservePrice)
	}
	if req.Quantity == 0 {
		return nil, domain.ErrBadQuantity
	}
	if req.Duration < MinDuration {
		return nil, domain.ErrBadDeadline
	}
	if req.Private && req.AllowedBidder.IsEmpty() {
		return nil, domain.ErrBadParamInput
	}
	now := im.clock.Now().UTC()
	a := &auction.Auction{
		Collection:    req.Collection.ToLower(),
		TokenId:       req.TokenId,
		Seller:        req.Seller.ToLower(),
		Quantity:      req.Quantity,
		MinBid:        ptr.BigInt(req.MinBid),
		ReservePrice:  ptr.BigInt(req.ReservePrice),
		EndTime:       now.Add(req.Duration),
		Private:       req.Private,
		AllowedBidder: req.AllowedBidder.ToLower(),
		Active:        true,
		CreatedAt:     now,
	}
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		allowed, err := im.collection.IsAllowed(c, a.Collection)
		if err != nil {
			return err
		}
		if !allowed {
			return xerrors.Errorf("collection %s: %w", a.Collection, domain.ErrCollectionDenied)
		}
		if existing, err := im.auctionRepo.FindOne(c, a.AssetId()); err == nil && existing.Active {
			return xerrors.Errorf("auction for %s: %w", a.AssetId(), domain.ErrAlreadyExists)
		} else if err != nil && !xerrors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := im.auctionRepo.Upsert(c, a); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventAuctionCreated,
			Collection: a.Collection,
			TokenId:    a.TokenId,
			From:       a.Seller,
			Amount:     a.MinBid.String(),
			Quantity:   a.Quantity,
		}); err != nil {
			return err
		}
		return im.custodian.Deposit(c, a.AssetId(), a.Seller, a.Quantity)
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":    err,
			"asset":  a.AssetId().String(),
			"seller": a.Seller,
		}).Error("failed to create auction")
		return nil, err
	}
	im.metrics.BumpSum("create.count", 1)
	return a, nil
}

func (im *impl) PlaceBid(c bCtx.Ctx, id domain.AssetId, bidder domain.Address, amount *big.Int) error {
	if im.busy {
		return xerrors.Errorf("place bid: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()

	bidder = bidder.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Active {
			return domain.ErrNotActive
		}
		now := im.clock.Now().UTC()
		if !now.Before(a.EndTime) {
			return domain.ErrExpired
		}
		if a.Seller.Equals(bidder) {
			return domain.ErrSellerBid
		}
		if a.Private && !a.AllowedBidder.Equals(bidder) {
			return xerrors.Errorf("bidder %s: %w", bidder, domain.ErrNotAllowedBidder)
		}
		min := a.MinNextBid(im.bidIncrementBps)
		if amount == nil || amount.Cmp(min) < 0 {
			return xerrors.Errorf("bid below %s: %w", min, domain.ErrBidTooLow)
		}

		// escrow the new bid before touching auction state
		if err := im.bank.Transfer(c, bidder, domain.MarketAccount, amount); err != nil {
			return err
		}

		prevBidder, prevBid := a.HighestBidder, a.HighestBid
		a.HighestBidder = bidder
		a.HighestBid = ptr.BigInt(amount)
		extended := false
		if a.EndTime.Sub(now) <= im.antiSnipeWindow {
			a.EndTime = a.EndTime.Add(im.antiSnipeWindow)
			a.Extensions++
			extended = true
		}
		if err := im.auctionRepo.Upsert(c, a); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventAuctionBid,
			Collection: a.Collection,
			TokenId:    a.TokenId,
			From:       bidder,
			Amount:     amount.String(),
		}); err != nil {
			return err
		}
		if extended {
			if err := im.eventRecorder.Record(c, &domain.Event{
				Type:       domain.EventAuctionExtended,
				Collection: a.Collection,
				TokenId:    a.TokenId,
			}); err != nil {
				return err
			}
		}
		// outbid funds go to the pull ledger, never pushed back eagerly
		if !prevBidder.IsEmpty() && domain.IsPositive(prevBid) {
			if err := im.ledger.Credit(c, prevBidder, prevBid); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel is seller-only and rejected once any bid exists. Permitted while
// paused so sellers can recover escrowed assets.
func (im *impl) Cancel(c bCtx.Ctx, id domain.AssetId, seller domain.Address) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Active {
			return domain.ErrNotActive
		}
		if !a.Seller.Equals(seller) {
			return xerrors.Errorf("caller %s is not seller %s: %w", seller, a.Seller, domain.ErrNotSeller)
		}
		if a.HasBids() {
			return domain.ErrAuctionHasBids
		}
		a.Active = false
		if err := im.auctionRepo.Upsert(c, a); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventAuctionCancelled,
			Collection: a.Collection,
			TokenId:    a.TokenId,
			From:       a.Seller,
		}); err != nil {
			return err
		}
		return im.custodian.Release(c, id, a.Seller, a.Quantity)
	})
}

func (im *impl) End(c bCtx.Ctx, id domain.AssetId, caller domain.Address) error {
	if im.busy {
		return xerrors.Errorf("end auction: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()
	defer im.metrics.BumpTime("end.time").End()

	return im.db.Update(func(tx *statedb.Tx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		if !a.Active {
			return domain.ErrNotActive
		}
		if im.clock.Now().UTC().Before(a.EndTime) {
			return domain.ErrAuctionLive
		}
		a.Active = false
		if err := im.auctionRepo.Upsert(c, a); err != nil {
			return err
		}
		switch {
		case !a.HasBids():
			return im.endNoBids(c, a)
		case a.ReservePrice != nil && a.HighestBid.Cmp(a.ReservePrice) < 0:
			return im.endReserveNotMet(c, a)
		default:
			return im.settle(c, a)
		}
	})
}

func (im *impl) endNoBids(c bCtx.Ctx, a *auction.Auction) error {
	if err := im.eventRecorder.Record(c, &domain.Event{
		Type:       domain.EventAuctionCancelled,
		Collection: a.Collection,
		TokenId:    a.TokenId,
		From:       a.Seller,
	}); err != nil {
		return err
	}
	return im.custodian.Release(c, a.AssetId(), a.Seller, a.Quantity)
}

// endReserveNotMet refunds the highest bidder through the pull ledger and
// returns the asset. No sale event is emitted.
func (im *impl) endReserveNotMet(c bCtx.Ctx, a *auction.Auction) error {
	if err := im.ledger.Credit(c, a.HighestBidder, a.HighestBid); err != nil {
		return err
	}
	if err := im.eventRecorder.Record(c, &domain.Event{
		Type:       domain.EventAuctionReserveNotMet,
		Collection: a.Collection,
		TokenId:    a.TokenId,
		From:       a.Seller,
		To:         a.HighestBidder,
		Amount:     a.HighestBid.String(),
	}); err != nil {
		return err
	}
	return im.custodian.Release(c, a.AssetId(), a.Seller, a.Quantity)
}

func (im *impl) settle(c bCtx.Ctx, a *auction.Auction) error {
	breakdown, err := im.calculator.ComputeSplit(c, a.AssetId(), a.HighestBid)
	if err != nil {
		return err
	}
	if err := im.eventRecorder.Record(c, &domain.Event{
		Type:       domain.EventAuctionEnded,
		Collection: a.Collection,
		TokenId:    a.TokenId,
		From:       a.Seller,
		To:         a.HighestBidder,
		Amount:     a.HighestBid.String(),
		Fee:        breakdown.Fee.String(),
		Royalty:    breakdown.Royalty.String(),
		Quantity:   a.Quantity,
	}); err != nil {
		return err
	}
	if err := im.distributor.Payout(c, a.Seller, breakdown); err != nil {
		return err
	}
	if err := im.custodian.Release(c, a.AssetId(), a.HighestBidder, a.Quantity); err != nil {
		return err
	}
	im.metrics.BumpSum("settle.count", 1)
	return nil
}

// Deactivate deactivates the auction without settling it, crediting any
// standing bid back through the ledger. The asset's escrow record is left for
// the caller to resolve.
func (im *impl) Deactivate(c bCtx.Ctx, id domain.AssetId) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		a, err := im.auctionRepo.FindOne(c, id)
		if xerrors.Is(err, domain.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if !a.Active {
			return nil
		}
		a.Active = false
		if err := im.auctionRepo.Upsert(c, a); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventAuctionCancelled,
			Collection: a.Collection,
			TokenId:    a.TokenId,
			From:       a.Seller,
		}); err != nil {
			return err
		}
		if a.HasBids() {
			return im.ledger.Credit(c, a.HighestBidder, a.HighestBid)
		}
		return nil
	})
}
