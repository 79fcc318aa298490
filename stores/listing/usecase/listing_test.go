package usecase_test

import (
	"math/big"
	"testing"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/domain/listing"
	"github.com/nifty-xyz/gomarket/markettest"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

var (
	collectionAddr = domain.Address("0x000000000000000000000000000000c0113c7101")
	seller         = domain.Address("0x0000000000000000000000000000000000531137")
	buyer          = domain.Address("0x0000000000000000000000000000000000b00137")
	royaltyDest    = domain.Address("0x000000000000000000000000000000000007011a")
)

func pauseChange() governance.Change {
	return governance.Change{Kind: governance.ChangePause}
}

func deploy(t *testing.T, env *markettest.Env) *assets.SingleUnitToken {
	t.Helper()
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", seller))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, seller, domain.MarketAccount, true))
	return token
}

func list(t *testing.T, env *markettest.Env, price int64) domain.AssetId {
	t.Helper()
	deploy(t, env)
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   collectionAddr,
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(price),
	})
	require.NoError(t, err)
	return domain.AssetId{Collection: collectionAddr, TokenId: "1"}
}

func TestListEscrowsAsset(t *testing.T) {
	env := markettest.NewEnv(t)
	token := deploy(t, env)
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   collectionAddr,
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(1000),
	})
	require.NoError(t, err)

	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}
	record, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.NoError(t, err)
	require.Equal(t, seller.ToLower(), record.Depositor)

	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(domain.MarketAccount))

	require.Len(t, env.Events(t, domain.EventListingCreated), 1)
	require.Len(t, env.Events(t, domain.EventEscrowDeposited), 1)
}

func TestListRejectsUnapproved(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", seller))

	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   collectionAddr,
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(1000),
	})
	require.ErrorIs(t, err, domain.ErrNotApproved)
	// the failed operation must leave no listing and no events behind
	_, err = env.Listing.Get(env.Ctx, domain.AssetId{Collection: collectionAddr, TokenId: "1"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Empty(t, env.Events(t))
}

func TestListRejectsDeniedCollection(t *testing.T) {
	env := markettest.NewEnv(t)
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   domain.Address("0x0000000000000000000000000000000000decade"),
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(1000),
	})
	require.ErrorIs(t, err, domain.ErrCollectionDenied)
}

func TestBuySettles(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 10000)
	env.Fund(t, buyer, 10000)
	before := env.TotalSupply(t, seller, buyer, markettest.Treasury, royaltyDest)

	require.NoError(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(10000)))

	// fee 2.5% of 10000 = 250, no royalty configured
	require.Equal(t, int64(250), env.Balance(t, markettest.Treasury).Int64())
	require.Equal(t, int64(9750), env.Balance(t, seller).Int64())
	require.Equal(t, int64(0), env.Balance(t, buyer).Int64())
	after := env.TotalSupply(t, seller, buyer, markettest.Treasury, royaltyDest)
	require.Zero(t, before.Cmp(after))

	l, err := env.Listing.Get(env.Ctx, id)
	require.NoError(t, err)
	require.False(t, l.Active)
	_, err = env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, env.Events(t, domain.EventListingSold), 1)
}

func TestBuyPaysRoyalty(t *testing.T) {
	env := markettest.NewEnv(t)
	token := deploy(t, env)
	token.SetRoyalty(&assets.RoyaltyPolicy{Receiver: royaltyDest, Bps: 1000})
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   collectionAddr,
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(10000),
	})
	require.NoError(t, err)
	env.Fund(t, buyer, 10000)

	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}
	require.NoError(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(10000)))

	require.Equal(t, int64(250), env.Balance(t, markettest.Treasury).Int64())
	require.Equal(t, int64(1000), env.Balance(t, royaltyDest).Int64())
	require.Equal(t, int64(8750), env.Balance(t, seller).Int64())
}

func TestBuyInsufficientPayment(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 10000)
	env.Fund(t, buyer, 9999)

	err := env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(9999))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	l, err := env.Listing.Get(env.Ctx, id)
	require.NoError(t, err)
	require.True(t, l.Active)
	require.Equal(t, int64(9999), env.Balance(t, buyer).Int64())
}

type rejectFunds struct{}

func (rejectFunds) OnFundsReceived(bCtx.Ctx, domain.Address, domain.Address, *big.Int) error {
	return xerrors.New("nope")
}

func TestBuyAbortsWhenSellerRejectsProceeds(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 10000)
	env.Fund(t, buyer, 10000)
	env.Bank.SetHook(seller, rejectFunds{})

	err := env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(10000))
	require.ErrorIs(t, err, domain.ErrTransferFailed)

	// atomicity: listing still active, asset still escrowed, buyer keeps funds
	l, err := env.Listing.Get(env.Ctx, id)
	require.NoError(t, err)
	require.True(t, l.Active)
	require.Equal(t, int64(10000), env.Balance(t, buyer).Int64())
	require.Equal(t, int64(0), env.Balance(t, markettest.Treasury).Int64())
	require.Empty(t, env.Events(t, domain.EventListingSold))
}

func TestBuyOverpaymentRefundFallsBackToLedger(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 10000)
	env.Fund(t, buyer, 12000)
	env.Bank.SetHook(buyer, rejectFunds{})

	require.NoError(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(12000)))

	// sale went through, the rejected 2000 refund sits on the ledger
	require.Equal(t, int64(0), env.Balance(t, buyer).Int64())
	balance, err := env.Ledger.BalanceOf(env.Ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(2000), balance.Int64())
	require.Len(t, env.Events(t, domain.EventRefundFailed), 1)
}

type reentrantBuyer struct {
	env *markettest.Env
	id  domain.AssetId
	err error
}

func (h *reentrantBuyer) OnFundsReceived(c bCtx.Ctx, from, to domain.Address, amount *big.Int) error {
	h.err = h.env.Listing.Buy(c, h.id, buyer, big.NewInt(10000))
	return nil
}

func TestBuyReentrancyGuard(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 10000)
	env.Fund(t, buyer, 20000)

	// seller's funds receiver re-enters Buy mid-settlement
	hook := &reentrantBuyer{env: env, id: id}
	env.Bank.SetHook(seller, hook)

	require.NoError(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(10000)))
	require.ErrorIs(t, hook.err, domain.ErrReentrantCall)
	require.True(t, domain.IsStateError(hook.err))
	require.Equal(t, int64(10000), env.Balance(t, buyer).Int64())
	require.Len(t, env.Events(t, domain.EventListingSold), 1)
}

func TestDelistReturnsAsset(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 1000)

	require.ErrorIs(t, env.Listing.Delist(env.Ctx, id, buyer), domain.ErrNotSeller)
	require.NoError(t, env.Listing.Delist(env.Ctx, id, seller))
	require.ErrorIs(t, env.Listing.Delist(env.Ctx, id, seller), domain.ErrNotActive)

	_, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelistWhilePaused(t *testing.T) {
	env := markettest.NewEnv(t)
	id := list(t, env, 1000)
	require.NoError(t, env.Governance.Apply(env.Ctx, markettest.Admin, pauseChange()))

	env.Fund(t, buyer, 1000)
	require.ErrorIs(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(1000)), domain.ErrMarketPaused)
	// recovery stays open while trading is halted
	require.NoError(t, env.Listing.Delist(env.Ctx, id, seller))
}

func TestPrivateListing(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	allowed := domain.Address("0x000000000000000000000000000000000a110d3d")
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection:   collectionAddr,
		TokenId:      "1",
		Seller:       seller,
		Quantity:     1,
		PricePerItem: big.NewInt(1000),
		Private:      true,
		AllowedBuyer: allowed,
	})
	require.NoError(t, err)

	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}
	env.Fund(t, buyer, 1000)
	env.Fund(t, allowed, 1000)
	require.ErrorIs(t, env.Listing.Buy(env.Ctx, id, buyer, big.NewInt(1000)), domain.ErrNotAllowedBuyer)
	require.NoError(t, env.Listing.Buy(env.Ctx, id, allowed, big.NewInt(1000)))
}

func TestListValidation(t *testing.T) {
	env := markettest.NewEnv(t)
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 1, PricePerItem: big.NewInt(0),
	})
	require.ErrorIs(t, err, domain.ErrZeroPrice)
	require.True(t, domain.IsValidationError(err))

	_, err = env.Listing.List(env.Ctx, listing.ListRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 0, PricePerItem: big.NewInt(1),
	})
	require.ErrorIs(t, err, domain.ErrBadQuantity)
}
