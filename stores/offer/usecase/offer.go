package usecase

import (
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
	"github.com/nifty-xyz/gomarket/domain/listing"
	"github.com/nifty-xyz/gomarket/domain/offer"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/payments"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type OfferUseCaseCfg struct {
	DB                  *statedb.DB
	OfferRepo           offer.Repo
	CollectionOfferRepo offer.CollectionRepo
	Collection          collection.UseCase
	Governance          governance.UseCase
	Custodian           escrow.Custodian
	Calculator          royalty.Calculator
	Listing             listing.UseCase
	Auction             auction.UseCase
	AssetRegistry       assets.Registry
	Bank                bank.Bank
	Distributor         *payments.Distributor
	EventRecorder       domain.EventRecorder
	Clock               clock.Clock
}

type impl struct {
	db                  *statedb.DB
	offerRepo           offer.Repo
	collectionOfferRepo offer.CollectionRepo
	collection          collection.UseCase
	governance          governance.UseCase
	custodian           escrow.Custodian
	calculator          royalty.Calculator
	listing             listing.UseCase
	auction             auction.UseCase
	assetRegistry       assets.Registry
	bank                bank.Bank
	distributor         *payments.Distributor
	eventRecorder       domain.EventRecorder
	clock               clock.Clock
	metrics             metrics.Service
	busy                bool
}

func New(cfg *OfferUseCaseCfg) offer.UseCase {
	im := &impl{
		db:                  cfg.DB,
		offerRepo:           cfg.OfferRepo,
		collectionOfferRepo: cfg.CollectionOfferRepo,
		collection:          cfg.Collection,
		governance:          cfg.Governance,
		custodian:           cfg.Custodian,
		calculator:          cfg.Calculator,
		listing:             cfg.Listing,
		auction:             cfg.Auction,
		assetRegistry:       cfg.AssetRegistry,
		bank:                cfg.Bank,
		distributor:         cfg.Distributor,
		eventRecorder:       cfg.EventRecorder,
		clock:               cfg.Clock,
		metrics:             metrics.New("offer"),
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	return im
}

func (im *impl) FindByAsset(c bCtx.Ctx, id domain.AssetId) ([]*offer.Offer, error) {
	return im.offerRepo.FindByAsset(c, id)
}

func (im *impl) FindByCollection(c bCtx.Ctx, col domain.Address) ([]*offer.CollectionOffer, error) {
	return im.collectionOfferRepo.FindByCollection(c, col)
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

func (im *impl) Make(c bCtx.Ctx, req offer.MakeRequest) (*offer.Offer, int, error) {
	if !domain.IsPositive(req.Price) {
		return nil, 0, domain.ErrZeroPrice
	}
	if req.Quantity == 0 {
		return nil, 0, domain.ErrBadQuantity
	}
	if !req.Deadline.After(im.clock.Now()) {
		return nil, 0, domain.ErrBadDeadline
	}
	o := &offer.Offer{
		Collection: req.Collection.ToLower(),
		TokenId:    req.TokenId,
		Offeror:    req.Offeror.ToLower(),
		Price:      ptr.BigInt(req.Price),
		Quantity:   req.Quantity,
		Deadline:   req.Deadline.UTC(),
		Active:     true,
		CreatedAt:  im.clock.Now().UTC(),
	}
	index := 0
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		if err := im.requireAllowed(c, o.Collection); err != nil {
			return err
		}
		// the full price is escrowed for the offer's lifetime
		if err := im.bank.Transfer(c, o.Offeror, domain.MarketAccount, o.Price); err != nil {
			return err
		}
		var err error
		if index, err = im.offerRepo.Append(c, o); err != nil {
			return err
		}
		return im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventOfferMade,
			Collection: o.Collection,
			TokenId:    o.TokenId,
			From:       o.Offeror,
			Amount:     o.Price.String(),
			Quantity:   o.Quantity,
		})
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"asset":   o.AssetId().String(),
			"offeror": o.Offeror,
		}).Error("failed to make offer")
		return nil, 0, err
	}
	im.metrics.BumpSum("make.count", 1)
	return o, index, nil
}

// Cancel is permitted while paused and past the deadline so escrowed funds
// can always be recovered.
func (im *impl) Cancel(c bCtx.Ctx, id domain.AssetId, index int, offeror domain.Address) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		o, err := im.offerAt(c, id, index)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrNotActive
		}
		if !o.Offeror.Equals(offeror) {
			return xerrors.Errorf("caller %s is not offeror %s: %w", offeror, o.Offeror, domain.ErrNotOfferor)
		}
		if err := im.offerRepo.SwapRemove(c, id, index); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventOfferCancelled,
			Collection: o.Collection,
			TokenId:    o.TokenId,
			From:       o.Offeror,
			Amount:     o.Price.String(),
		}); err != nil {
			return err
		}
		// cancellation refunds eagerly; the offeror initiated the call so a
		// rejecting receiver only hurts itself
		return im.bank.Transfer(c, domain.MarketAccount, o.Offeror, o.Price)
	})
}

func (im *impl) Accept(c bCtx.Ctx, id domain.AssetId, index int, acceptor domain.Address) error {
	if im.busy {
		return xerrors.Errorf("accept offer: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()
	defer im.metrics.BumpTime("accept.time").End()

	acceptor = acceptor.ToLower()
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		o, err := im.offerAt(c, id, index)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrNotActive
		}
		if o.Expired(im.clock.Now().UTC()) {
			return domain.ErrExpired
		}
		escrowed, err := im.entitled(c, id, acceptor, o.Quantity)
		if err != nil {
			return err
		}

		// tombstone in place so indices held by other callers stay valid
		o.Active = false
		if err := im.offerRepo.Update(c, id, index, o); err != nil {
			return err
		}
		if err := im.reconcile(c, id); err != nil {
			return err
		}
		breakdown, err := im.calculator.ComputeSplit(c, id, o.Price)
		if err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventOfferAccepted,
			Collection: o.Collection,
			TokenId:    o.TokenId,
			From:       acceptor,
			To:         o.Offeror,
			Amount:     o.Price.String(),
			Fee:        breakdown.Fee.String(),
			Royalty:    breakdown.Royalty.String(),
			Quantity:   o.Quantity,
		}); err != nil {
			return err
		}
		if err := im.distributor.Payout(c, acceptor, breakdown); err != nil {
			return err
		}
		return im.deliver(c, id, acceptor, o.Offeror, o.Quantity, escrowed)
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":      err,
			"asset":    id.String(),
			"acceptor": acceptor,
		}).Error("failed to accept offer")
		return err
	}
	im.metrics.BumpSum("accept.count", 1)
	return nil
}

// entitled verifies the acceptor can deliver quantity units: either held
// directly or sitting in market escrow under the acceptor's name. Returns
// whether the asset comes out of escrow.
func (im *impl) entitled(c bCtx.Ctx, id domain.AssetId, acceptor domain.Address, quantity uint64) (bool, error) {
	record, err := im.custodian.DepositorOf(c, id)
	if err == nil {
		if record.Depositor.Equals(acceptor) && record.Quantity >= quantity {
			return true, nil
		}
	} else if !xerrors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	handle := im.assetRegistry.Probe(c, id.Collection)
	balance, err := handle.Balance(c, acceptor, id.TokenId)
	if err != nil {
		return false, xerrors.Errorf("balance query: %w", err)
	}
	if balance < quantity {
		return false, xerrors.Errorf("acceptor %s cannot deliver %d of %s: %w", acceptor, quantity, id, domain.ErrNotEntitled)
	}
	approved, err := handle.Approved(c, acceptor, domain.MarketAccount)
	if err != nil {
		return false, xerrors.Errorf("approval query: %w", err)
	}
	if !approved {
		return false, xerrors.Errorf("market not approved by %s on %s: %w", acceptor, id.Collection, domain.ErrNotApproved)
	}
	return false, nil
}

// reconcile deactivates any listing or auction overlapping the asset so a
// stale entry cannot be settled after the asset changed hands.
func (im *impl) reconcile(c bCtx.Ctx, id domain.AssetId) error {
	if err := im.listing.Deactivate(c, id); err != nil {
		return err
	}
	return im.auction.Deactivate(c, id)
}

// deliver moves the asset to the offeror, out of escrow when the acceptor is
// the recorded depositor, directly otherwise. Settling out of escrow returns
// any residual units to the depositor: the overlapping listing or auction was
// just deactivated, so units left in custody would have no recovery path.
func (im *impl) deliver(c bCtx.Ctx, id domain.AssetId, acceptor, offeror domain.Address, quantity uint64, escrowed bool) error {
	if escrowed {
		record, err := im.custodian.DepositorOf(c, id)
		if err != nil {
			return err
		}
		if err := im.custodian.Release(c, id, offeror, quantity); err != nil {
			return err
		}
		if residual := record.Quantity - quantity; residual > 0 {
			return im.custodian.Release(c, id, acceptor, residual)
		}
		return nil
	}
	handle := im.assetRegistry.Probe(c, id.Collection)
	if err := handle.Transfer(c, id.TokenId, acceptor, offeror, quantity); err != nil {
		return xerrors.Errorf("asset delivery: %w", err)
	}
	return nil
}

func (im *impl) MakeCollection(c bCtx.Ctx, req offer.MakeCollectionRequest) (*offer.CollectionOffer, int, error) {
	if !domain.IsPositive(req.PricePerItem) {
		return nil, 0, domain.ErrZeroPrice
	}
	if req.Quantity == 0 {
		return nil, 0, domain.ErrBadQuantity
	}
	if !req.Deadline.After(im.clock.Now()) {
		return nil, 0, domain.ErrBadDeadline
	}
	o := &offer.CollectionOffer{
		Collection:   req.Collection.ToLower(),
		Offeror:      req.Offeror.ToLower(),
		PricePerItem: ptr.BigInt(req.PricePerItem),
		Remaining:    req.Quantity,
		Deadline:     req.Deadline.UTC(),
		Active:       true,
		CreatedAt:    im.clock.Now().UTC(),
	}
	index := 0
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		if err := im.requireAllowed(c, o.Collection); err != nil {
			return err
		}
		if err := im.bank.Transfer(c, o.Offeror, domain.MarketAccount, o.EscrowedRemainder()); err != nil {
			return err
		}
		var err error
		if index, err = im.collectionOfferRepo.Append(c, o); err != nil {
			return err
		}
		return im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventCollectionOfferMade,
			Collection: o.Collection,
			From:       o.Offeror,
			Amount:     o.PricePerItem.String(),
			Quantity:   o.Remaining,
		})
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":        err,
			"collection": o.Collection,
			"offeror":    o.Offeror,
		}).Error("failed to make collection offer")
		return nil, 0, err
	}
	im.metrics.BumpSum("make_collection.count", 1)
	return o, index, nil
}

func (im *impl) CancelCollection(c bCtx.Ctx, col domain.Address, index int, offeror domain.Address) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		o, err := im.collectionOfferAt(c, col, index)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrNotActive
		}
		if !o.Offeror.Equals(offeror) {
			return xerrors.Errorf("caller %s is not offeror %s: %w", offeror, o.Offeror, domain.ErrNotOfferor)
		}
		if err := im.collectionOfferRepo.SwapRemove(c, col, index); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventCollectionOfferCanceled,
			Collection: o.Collection,
			From:       o.Offeror,
			Amount:     o.PricePerItem.String(),
			Quantity:   o.Remaining,
		}); err != nil {
			return err
		}
		// refund only the unfilled remainder
		return im.bank.Transfer(c, domain.MarketAccount, o.Offeror, o.EscrowedRemainder())
	})
}

// AcceptCollection fills one unit of a collection offer with the given asset.
func (im *impl) AcceptCollection(c bCtx.Ctx, col domain.Address, tokenId domain.TokenId, index int, acceptor domain.Address) error {
	if im.busy {
		return xerrors.Errorf("accept collection offer: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()

	acceptor = acceptor.ToLower()
	id := domain.AssetId{Collection: col.ToLower(), TokenId: tokenId}
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.governance.RequireNotPaused(c); err != nil {
			return err
		}
		o, err := im.collectionOfferAt(c, id.Collection, index)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrNotActive
		}
		if o.Expired(im.clock.Now().UTC()) {
			return domain.ErrExpired
		}
		if o.Remaining == 0 {
			return domain.ErrOfferDepleted
		}
		escrowed, err := im.entitled(c, id, acceptor, 1)
		if err != nil {
			return err
		}

		o.Remaining--
		if o.Remaining == 0 {
			o.Active = false
		}
		if err := im.collectionOfferRepo.Update(c, id.Collection, index, o); err != nil {
			return err
		}
		if err := im.reconcile(c, id); err != nil {
			return err
		}
		breakdown, err := im.calculator.ComputeSplit(c, id, o.PricePerItem)
		if err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:       domain.EventCollectionOfferAccepted,
			Collection: id.Collection,
			TokenId:    id.TokenId,
			From:       acceptor,
			To:         o.Offeror,
			Amount:     o.PricePerItem.String(),
			Fee:        breakdown.Fee.String(),
			Royalty:    breakdown.Royalty.String(),
			Quantity:   1,
		}); err != nil {
			return err
		}
		if err := im.distributor.Payout(c, acceptor, breakdown); err != nil {
			return err
		}
		return im.deliver(c, id, acceptor, o.Offeror, 1, escrowed)
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":      err,
			"asset":    id.String(),
			"acceptor": acceptor,
		}).Error("failed to accept collection offer")
		return err
	}
	im.metrics.BumpSum("accept_collection.count", 1)
	return nil
}

func (im *impl) offerAt(c bCtx.Ctx, id domain.AssetId, index int) (*offer.Offer, error) {
	seq, err := im.offerRepo.FindByAsset(c, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(seq) {
		return nil, xerrors.Errorf("offer index %d out of range: %w", index, domain.ErrNotFound)
	}
	return seq[index], nil
}

func (im *impl) collectionOfferAt(c bCtx.Ctx, col domain.Address, index int) (*offer.CollectionOffer, error) {
	seq, err := im.collectionOfferRepo.FindByCollection(c, col)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(seq) {
		return nil, xerrors.Errorf("collection offer index %d out of range: %w", index, domain.ErrNotFound)
	}
	return seq[index], nil
}
