// Package markettest wires a complete in-process market over a temporary
// state database for engine tests.
package markettest

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	dAuction "github.com/nifty-xyz/gomarket/domain/auction"
	dCollection "github.com/nifty-xyz/gomarket/domain/collection"
	dEscrow "github.com/nifty-xyz/gomarket/domain/escrow"
	dGovernance "github.com/nifty-xyz/gomarket/domain/governance"
	dLedger "github.com/nifty-xyz/gomarket/domain/ledger"
	dListing "github.com/nifty-xyz/gomarket/domain/listing"
	dOffer "github.com/nifty-xyz/gomarket/domain/offer"
	dRoyalty "github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/payments"
	"github.com/nifty-xyz/gomarket/service/statedb"
	auctionRepository "github.com/nifty-xyz/gomarket/stores/auction/repository"
	auctionUseCase "github.com/nifty-xyz/gomarket/stores/auction/usecase"
	collectionRepository "github.com/nifty-xyz/gomarket/stores/collection/repository"
	collectionUseCase "github.com/nifty-xyz/gomarket/stores/collection/usecase"
	escrowRepository "github.com/nifty-xyz/gomarket/stores/escrow/repository"
	escrowUseCase "github.com/nifty-xyz/gomarket/stores/escrow/usecase"
	eventRepository "github.com/nifty-xyz/gomarket/stores/event/repository"
	eventUseCase "github.com/nifty-xyz/gomarket/stores/event/usecase"
	governanceRepository "github.com/nifty-xyz/gomarket/stores/governance/repository"
	governanceUseCase "github.com/nifty-xyz/gomarket/stores/governance/usecase"
	ledgerRepository "github.com/nifty-xyz/gomarket/stores/ledger/repository"
	ledgerUseCase "github.com/nifty-xyz/gomarket/stores/ledger/usecase"
	listingRepository "github.com/nifty-xyz/gomarket/stores/listing/repository"
	listingUseCase "github.com/nifty-xyz/gomarket/stores/listing/usecase"
	offerRepository "github.com/nifty-xyz/gomarket/stores/offer/repository"
	offerUseCase "github.com/nifty-xyz/gomarket/stores/offer/usecase"
	royaltyRepository "github.com/nifty-xyz/gomarket/stores/royalty/repository"
	royaltyUseCase "github.com/nifty-xyz/gomarket/stores/royalty/usecase"
	"github.com/stretchr/testify/require"
)

var (
	Admin    = domain.Address("0x00000000000000000000000000000000000admin")
	Treasury = domain.Address("0x0000000000000000000000000000000treasury")
	Creator  = domain.Address("0x00000000000000000000000000000000creator")
)

// Env is a fully wired market over a temporary state database.
type Env struct {
	Ctx   bCtx.Ctx
	DB    *statedb.DB
	Clock *clock.Mock
	Bank  bank.Bank

	Registry   assets.Registry
	Collection dCollection.UseCase
	Governance dGovernance.UseCase
	Ledger     dLedger.UseCase
	Custodian  dEscrow.Custodian
	Calculator dRoyalty.Calculator
	Listing    dListing.UseCase
	Auction    dAuction.UseCase
	Offer      dOffer.UseCase

	EventRepo domain.EventRepo
	Recorder  domain.EventRecorder
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	db, err := statedb.Open(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := bCtx.Background()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	b := bank.New(db)
	registry := assets.NewRegistry()

	eventRepo := eventRepository.New(db)
	recorder := eventUseCase.NewRecorder(&eventUseCase.RecorderCfg{
		DB:        db,
		EventRepo: eventRepo,
	})

	collectionRepo := collectionRepository.New(db)
	governanceRepo := governanceRepository.New(db, dGovernance.Params{
		Admin:         Admin,
		Treasury:      Treasury,
		FeeBps:        dGovernance.DefaultFeeBps,
		RoyaltyCapBps: dGovernance.MaxRoyaltyBps,
	})
	governance := governanceUseCase.New(&governanceUseCase.GovernanceUseCaseCfg{
		DB:             db,
		GovernanceRepo: governanceRepo,
		CollectionRepo: collectionRepo,
		EventRecorder:  recorder,
		Clock:          mock,
	})
	collection := collectionUseCase.New(&collectionUseCase.CollectionUseCaseCfg{
		DB:             db,
		CollectionRepo: collectionRepo,
		Clock:          mock,
	})
	ledger := ledgerUseCase.New(&ledgerUseCase.LedgerUseCaseCfg{
		DB:            db,
		LedgerRepo:    ledgerRepository.New(db),
		Bank:          b,
		EventRecorder: recorder,
	})
	custodian := escrowUseCase.New(&escrowUseCase.CustodianCfg{
		DB:            db,
		EscrowRepo:    escrowRepository.New(db),
		AssetRegistry: registry,
		EventRecorder: recorder,
		Clock:         mock,
	})
	calculator := royaltyUseCase.New(&royaltyUseCase.CalculatorCfg{
		DB:             db,
		SplitRepo:      royaltyRepository.New(db),
		CollectionRepo: collectionRepo,
		Governance:     governance,
		AssetRegistry:  registry,
	})
	distributor := payments.NewDistributor(&payments.DistributorCfg{
		Bank:          b,
		Governance:    governance,
		Ledger:        ledger,
		EventRecorder: recorder,
	})
	listing := listingUseCase.New(&listingUseCase.ListingUseCaseCfg{
		DB:            db,
		ListingRepo:   listingRepository.New(db),
		Collection:    collection,
		Governance:    governance,
		Custodian:     custodian,
		Calculator:    calculator,
		Bank:          b,
		Distributor:   distributor,
		EventRecorder: recorder,
		Clock:         mock,
	})
	auction := auctionUseCase.New(&auctionUseCase.AuctionUseCaseCfg{
		DB:            db,
		AuctionRepo:   auctionRepository.New(db),
		Collection:    collection,
		Governance:    governance,
		Custodian:     custodian,
		Calculator:    calculator,
		Ledger:        ledger,
		Bank:          b,
		Distributor:   distributor,
		EventRecorder: recorder,
		Clock:         mock,
	})
	offer := offerUseCase.New(&offerUseCase.OfferUseCaseCfg{
		DB:                  db,
		OfferRepo:           offerRepository.New(db),
		CollectionOfferRepo: offerRepository.NewCollection(db),
		Collection:          collection,
		Governance:          governance,
		Custodian:           custodian,
		Calculator:          calculator,
		Listing:             listing,
		Auction:             auction,
		AssetRegistry:       registry,
		Bank:                b,
		Distributor:         distributor,
		EventRecorder:       recorder,
		Clock:               mock,
	})

	return &Env{
		Ctx:        c,
		DB:         db,
		Clock:      mock,
		Bank:       b,
		Registry:   registry,
		Collection: collection,
		Governance: governance,
		Ledger:     ledger,
		Custodian:  custodian,
		Calculator: calculator,
		Listing:    listing,
		Auction:    auction,
		Offer:      offer,
		EventRepo:  eventRepo,
		Recorder:   recorder,
	}
}

// NewSingleUnitCollection deploys a reference single-unit contract, registers
// it and allowlists it.
func (e *Env) NewSingleUnitCollection(t *testing.T, addr domain.Address) *assets.SingleUnitToken {
	t.Helper()
	token := assets.NewSingleUnitToken(addr, e.DB)
	e.Registry.Register(addr, token)
	e.registerAllowed(t, addr)
	return token
}

// NewMultiUnitCollection deploys a reference multi-unit contract, registers
// it and allowlists it.
func (e *Env) NewMultiUnitCollection(t *testing.T, addr domain.Address) *assets.MultiUnitToken {
	t.Helper()
	token := assets.NewMultiUnitToken(addr, e.DB)
	e.Registry.Register(addr, token)
	e.registerAllowed(t, addr)
	return token
}

func (e *Env) registerAllowed(t *testing.T, addr domain.Address) {
	t.Helper()
	require.NoError(t, e.Collection.Register(e.Ctx, &dCollection.Collection{
		Address: addr,
		Name:    "test collection",
		Creator: Creator,
	}))
	require.NoError(t, e.Governance.Apply(e.Ctx, Admin, dGovernance.Change{
		Kind:    dGovernance.ChangeAllowCollection,
		Address: addr,
	}))
}

// Fund credits an account with native currency.
func (e *Env) Fund(t *testing.T, addr domain.Address, amount int64) {
	t.Helper()
	require.NoError(t, e.Bank.Mint(e.Ctx, addr, big.NewInt(amount)))
}

// Balance returns an account's bank balance.
func (e *Env) Balance(t *testing.T, addr domain.Address) *big.Int {
	t.Helper()
	balance, err := e.Bank.BalanceOf(e.Ctx, addr)
	require.NoError(t, err)
	return balance
}

// TotalSupply sums the balances of the given accounts plus the market escrow
// account, for conservation checks.
func (e *Env) TotalSupply(t *testing.T, addrs ...domain.Address) *big.Int {
	t.Helper()
	total := e.Balance(t, domain.MarketAccount)
	for _, addr := range addrs {
		total.Add(total, e.Balance(t, addr))
	}
	return total
}

// Events returns all recorded events of the given types, all events when none
// given.
func (e *Env) Events(t *testing.T, types ...domain.EventType) []*domain.Event {
	t.Helper()
	var opts []domain.EventFindAllOptionsFunc
	if len(types) > 0 {
		opts = append(opts, domain.EventWithTypes(types...))
	}
	evs, err := e.EventRepo.FindAll(e.Ctx, opts...)
	require.NoError(t, err)
	return evs
}
