package usecase_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/listing"
	"github.com/nifty-xyz/gomarket/domain/offer"
	"github.com/nifty-xyz/gomarket/markettest"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/stretchr/testify/require"
)

var (
	collectionAddr = domain.Address("0x000000000000000000000000000000c0113c7101")
	holder         = domain.Address("0x0000000000000000000000000000000000801d37")
	offeror        = domain.Address("0x00000000000000000000000000000000000f3707")
)

func deploy(t *testing.T, env *markettest.Env) *assets.SingleUnitToken {
	t.Helper()
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	return token
}

func makeOffer(t *testing.T, env *markettest.Env, price int64) (domain.AssetId, int) {
	t.Helper()
	env.Fund(t, offeror, price)
	_, index, err := env.Offer.Make(env.Ctx, offer.MakeRequest{
		Collection: collectionAddr,
		TokenId:    "1",
		Offeror:    offeror,
		Price:      big.NewInt(price),
		Quantity:   1,
		Deadline:   env.Clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return domain.AssetId{Collection: collectionAddr, TokenId: "1"}, index
}

func TestMakeEscrowsFunds(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	id, _ := makeOffer(t, env, 10000)

	require.Equal(t, int64(0), env.Balance(t, offeror).Int64())
	require.Equal(t, int64(10000), env.Balance(t, domain.MarketAccount).Int64())

	offers, err := env.Offer.FindByAsset(env.Ctx, id)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.True(t, offers[0].Active)
}

func TestMakeValidation(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	_, _, err := env.Offer.Make(env.Ctx, offer.MakeRequest{
		Collection: collectionAddr, TokenId: "1", Offeror: offeror,
		Price: big.NewInt(0), Quantity: 1, Deadline: env.Clock.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrZeroPrice)

	_, _, err = env.Offer.Make(env.Ctx, offer.MakeRequest{
		Collection: collectionAddr, TokenId: "1", Offeror: offeror,
		Price: big.NewInt(100), Quantity: 1, Deadline: env.Clock.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrBadDeadline)
}

func TestMakeInsufficientFunds(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	env.Fund(t, offeror, 50)
	_, _, err := env.Offer.Make(env.Ctx, offer.MakeRequest{
		Collection: collectionAddr, TokenId: "1", Offeror: offeror,
		Price: big.NewInt(100), Quantity: 1, Deadline: env.Clock.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	offers, err := env.Offer.FindByAsset(env.Ctx, domain.AssetId{Collection: collectionAddr, TokenId: "1"})
	require.NoError(t, err)
	require.Empty(t, offers)
}

func TestCancelRefundsEagerly(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	id, index := makeOffer(t, env, 10000)

	require.ErrorIs(t, env.Offer.Cancel(env.Ctx, id, index, holder), domain.ErrNotOfferor)
	require.NoError(t, env.Offer.Cancel(env.Ctx, id, index, offeror))

	require.Equal(t, int64(10000), env.Balance(t, offeror).Int64())
	offers, err := env.Offer.FindByAsset(env.Ctx, id)
	require.NoError(t, err)
	require.Empty(t, offers)
}

func TestAcceptByDirectHolder(t *testing.T) {
	env := markettest.NewEnv(t)
	token := deploy(t, env)
	id, index := makeOffer(t, env, 10000)
	before := env.TotalSupply(t, holder, offeror, markettest.Treasury)

	require.NoError(t, env.Offer.Accept(env.Ctx, id, index, holder))

	require.Equal(t, int64(250), env.Balance(t, markettest.Treasury).Int64())
	require.Equal(t, int64(9750), env.Balance(t, holder).Int64())
	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(offeror))
	after := env.TotalSupply(t, holder, offeror, markettest.Treasury)
	require.Zero(t, before.Cmp(after))

	// the accepted offer is tombstoned in place
	offers, err := env.Offer.FindByAsset(env.Ctx, id)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.False(t, offers[0].Active)

	// accepting the tombstone again fails
	require.ErrorIs(t, env.Offer.Accept(env.Ctx, id, index, holder), domain.ErrNotActive)
}

func TestAcceptByEscrowDepositorReconcilesListing(t *testing.T) {
	env := markettest.NewEnv(t)
	token := deploy(t, env)
	// the asset sits in escrow under an active listing
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection: collectionAddr, TokenId: "1", Seller: holder,
		Quantity: 1, PricePerItem: big.NewInt(99999),
	})
	require.NoError(t, err)
	id, index := makeOffer(t, env, 10000)

	require.NoError(t, env.Offer.Accept(env.Ctx, id, index, holder))

	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(offeror))
	// the stale listing was deactivated in the same operation
	l, err := env.Listing.Get(env.Ctx, id)
	require.NoError(t, err)
	require.False(t, l.Active)
	_, err = env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAcceptPartialQuantityReturnsResidualEscrow(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewMultiUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder, 5))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	_, err := env.Listing.List(env.Ctx, listing.ListRequest{
		Collection: collectionAddr, TokenId: "1", Seller: holder,
		Quantity: 5, PricePerItem: big.NewInt(99999),
	})
	require.NoError(t, err)
	env.Fund(t, offeror, 20000)
	_, index, err := env.Offer.Make(env.Ctx, offer.MakeRequest{
		Collection: collectionAddr,
		TokenId:    "1",
		Offeror:    offeror,
		Price:      big.NewInt(20000),
		Quantity:   2,
		Deadline:   env.Clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	require.NoError(t, env.Offer.Accept(env.Ctx, id, index, holder))

	// the offered units went to the offeror and the residual came back to
	// the depositor, the listing that escrowed them is gone
	got, err := token.BalanceOf(env.Ctx, offeror, "1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), got)
	got, err = token.BalanceOf(env.Ctx, holder, "1")
	require.NoError(t, err)
	require.Equal(t, uint64(3), got)
	_, err = env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	l, err := env.Listing.Get(env.Ctx, id)
	require.NoError(t, err)
	require.False(t, l.Active)
}

func TestAcceptRejectsNonHolder(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	id, index := makeOffer(t, env, 10000)
	stranger := domain.Address("0x0000000000000000000000000000000000057a8e")
	require.ErrorIs(t, env.Offer.Accept(env.Ctx, id, index, stranger), domain.ErrNotEntitled)
}

func TestAcceptExpiredOffer(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)
	id, index := makeOffer(t, env, 10000)
	env.Clock.Add(25 * time.Hour)
	require.ErrorIs(t, env.Offer.Accept(env.Ctx, id, index, holder), domain.ErrExpired)
	// the escrowed funds remain recoverable through cancel
	require.NoError(t, env.Offer.Cancel(env.Ctx, id, index, offeror))
	require.Equal(t, int64(10000), env.Balance(t, offeror).Int64())
}

func TestCollectionOfferFills(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewMultiUnitCollection(t, collectionAddr)
	sellerA := domain.Address("0x000000000000000000000000000000000000a11a")
	sellerB := domain.Address("0x000000000000000000000000000000000000b0bb")
	require.NoError(t, token.Mint(env.Ctx, "7", sellerA, 1))
	require.NoError(t, token.Mint(env.Ctx, "8", sellerB, 1))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, sellerA, domain.MarketAccount, true))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, sellerB, domain.MarketAccount, true))

	env.Fund(t, offeror, 20000)
	_, index, err := env.Offer.MakeCollection(env.Ctx, offer.MakeCollectionRequest{
		Collection:   collectionAddr,
		Offeror:      offeror,
		PricePerItem: big.NewInt(10000),
		Quantity:     2,
		Deadline:     env.Clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), env.Balance(t, offeror).Int64())

	// two different sellers fill one unit each
	require.NoError(t, env.Offer.AcceptCollection(env.Ctx, collectionAddr, "7", index, sellerA))
	offers, err := env.Offer.FindByCollection(env.Ctx, collectionAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), offers[index].Remaining)
	require.True(t, offers[index].Active)

	require.NoError(t, env.Offer.AcceptCollection(env.Ctx, collectionAddr, "8", index, sellerB))
	offers, err = env.Offer.FindByCollection(env.Ctx, collectionAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offers[index].Remaining)
	require.False(t, offers[index].Active)

	// depleted: a third fill fails
	require.ErrorIs(t, env.Offer.AcceptCollection(env.Ctx, collectionAddr, "7", index, sellerA), domain.ErrNotActive)

	balanceA, err := token.BalanceOf(env.Ctx, offeror, "7")
	require.NoError(t, err)
	require.Equal(t, uint64(1), balanceA)
	require.Equal(t, int64(9750), env.Balance(t, sellerA).Int64())
	require.Equal(t, int64(9750), env.Balance(t, sellerB).Int64())
	require.Equal(t, int64(500), env.Balance(t, markettest.Treasury).Int64())
}

func TestCancelCollectionRefundsRemainder(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewMultiUnitCollection(t, collectionAddr)
	sellerA := domain.Address("0x000000000000000000000000000000000000a11a")
	require.NoError(t, token.Mint(env.Ctx, "7", sellerA, 1))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, sellerA, domain.MarketAccount, true))

	env.Fund(t, offeror, 20000)
	_, index, err := env.Offer.MakeCollection(env.Ctx, offer.MakeCollectionRequest{
		Collection:   collectionAddr,
		Offeror:      offeror,
		PricePerItem: big.NewInt(10000),
		Quantity:     2,
		Deadline:     env.Clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, env.Offer.AcceptCollection(env.Ctx, collectionAddr, "7", index, sellerA))

	// one unit filled, the remainder comes back on cancel
	require.NoError(t, env.Offer.CancelCollection(env.Ctx, collectionAddr, index, offeror))
	require.Equal(t, int64(10000), env.Balance(t, offeror).Int64())
}
