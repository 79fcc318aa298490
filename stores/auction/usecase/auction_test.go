package usecase_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/auction"
	"github.com/nifty-xyz/gomarket/markettest"
	"github.com/nifty-xyz/gomarket/service/assets"
	usecase "github.com/nifty-xyz/gomarket/stores/auction/usecase"
	"github.com/stretchr/testify/require"
)

var (
	collectionAddr = domain.Address("0x000000000000000000000000000000c0113c7101")
	seller         = domain.Address("0x0000000000000000000000000000000000531137")
	bidderA        = domain.Address("0x000000000000000000000000000000000000a11a")
	bidderB        = domain.Address("0x000000000000000000000000000000000000b0bb")
)

func deploy(t *testing.T, env *markettest.Env) *assets.SingleUnitToken {
	t.Helper()
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", seller))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, seller, domain.MarketAccount, true))
	return token
}

func create(t *testing.T, env *markettest.Env, minBid, reserve int64, duration time.Duration) domain.AssetId {
	t.Helper()
	deploy(t, env)
	req := auction.CreateRequest{
		Collection: collectionAddr,
		TokenId:    "1",
		Seller:     seller,
		Quantity:   1,
		MinBid:     big.NewInt(minBid),
		Duration:   duration,
	}
	if reserve > 0 {
		req.ReservePrice = big.NewInt(reserve)
	}
	_, err := env.Auction.Create(env.Ctx, req)
	require.NoError(t, err)
	return domain.AssetId{Collection: collectionAddr, TokenId: "1"}
}

func TestCreateValidation(t *testing.T) {
	env := markettest.NewEnv(t)
	deploy(t, env)

	_, err := env.Auction.Create(env.Ctx, auction.CreateRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 1,
		MinBid: big.NewInt(0), Duration: time.Hour,
	})
	require.ErrorIs(t, err, domain.ErrZeroPrice)

	_, err = env.Auction.Create(env.Ctx, auction.CreateRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 1,
		MinBid: big.NewInt(100), ReservePrice: big.NewInt(99), Duration: time.Hour,
	})
	require.ErrorIs(t, err, domain.ErrBadReservePrice)
}

func TestBidFlow(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)
	env.Fund(t, bidderA, 1000)
	env.Fund(t, bidderB, 1000)

	// first bid must meet the minimum
	err := env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(99))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(100)))

	// increment 500 bp: an overbid of exactly H+1 must fail
	err = env.Auction.PlaceBid(env.Ctx, id, bidderB, big.NewInt(101))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderB, big.NewInt(105)))

	// outbid funds go to the pull ledger
	require.Equal(t, int64(900), env.Balance(t, bidderA).Int64())
	credited, err := env.Ledger.BalanceOf(env.Ctx, bidderA)
	require.NoError(t, err)
	require.Equal(t, int64(100), credited.Int64())

	withdrawn, err := env.Ledger.Withdraw(env.Ctx, bidderA)
	require.NoError(t, err)
	require.Equal(t, int64(100), withdrawn.Int64())
	require.Equal(t, int64(1000), env.Balance(t, bidderA).Int64())
}

func TestSellerCannotBid(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)
	env.Fund(t, seller, 1000)
	require.ErrorIs(t, env.Auction.PlaceBid(env.Ctx, id, seller, big.NewInt(100)), domain.ErrSellerBid)
}

func TestAntiSnipeExtension(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)
	env.Fund(t, bidderA, 1000)
	env.Fund(t, bidderB, 1000)

	// a bid inside the final window pushes the end time out by the window
	env.Clock.Add(55 * time.Minute)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(100)))
	a, err := env.Auction.Get(env.Ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, a.Extensions)
	firstEnd := a.EndTime

	// ending before the pushed deadline fails
	env.Clock.Add(10 * time.Minute)
	require.ErrorIs(t, env.Auction.End(env.Ctx, id, bidderB), domain.ErrAuctionLive)

	// a second late bid extends again, unbounded
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderB, big.NewInt(105)))
	a, err = env.Auction.Get(env.Ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, a.Extensions)
	require.True(t, a.EndTime.After(firstEnd))
	require.Len(t, env.Events(t, domain.EventAuctionExtended), 2)
}

func TestCancelOnlyWithoutBids(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)
	env.Fund(t, bidderA, 1000)

	require.ErrorIs(t, env.Auction.Cancel(env.Ctx, id, bidderA), domain.ErrNotSeller)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(100)))
	require.ErrorIs(t, env.Auction.Cancel(env.Ctx, id, seller), domain.ErrAuctionHasBids)
}

func TestCancelReturnsAsset(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)
	require.NoError(t, env.Auction.Cancel(env.Ctx, id, seller))
	_, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, env.Events(t, domain.EventAuctionCancelled), 1)
}

func TestEndNoBids(t *testing.T) {
	env := markettest.NewEnv(t)
	id := create(t, env, 100, 0, time.Hour)

	require.ErrorIs(t, env.Auction.End(env.Ctx, id, bidderA), domain.ErrAuctionLive)
	env.Clock.Add(time.Hour)
	require.NoError(t, env.Auction.End(env.Ctx, id, bidderA))

	// asset back with the seller, cancellation-style event
	_, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, env.Events(t, domain.EventAuctionCancelled), 1)
	require.Empty(t, env.Events(t, domain.EventAuctionEnded))
}

func TestEndReserveNotMet(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", seller))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, seller, domain.MarketAccount, true))
	_, err := env.Auction.Create(env.Ctx, auction.CreateRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 1,
		MinBid: big.NewInt(50), ReservePrice: big.NewInt(100), Duration: time.Hour,
	})
	require.NoError(t, err)
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}
	env.Fund(t, bidderA, 80)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(80)))

	env.Clock.Add(time.Hour)
	require.NoError(t, env.Auction.End(env.Ctx, id, bidderB))

	// bid refunded through the ledger, asset back with the seller
	credited, err := env.Ledger.BalanceOf(env.Ctx, bidderA)
	require.NoError(t, err)
	require.Equal(t, int64(80), credited.Int64())
	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(seller))
	require.Len(t, env.Events(t, domain.EventAuctionReserveNotMet), 1)
	require.Empty(t, env.Events(t, domain.EventAuctionEnded))
}

func TestEndSettles(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", seller))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, seller, domain.MarketAccount, true))
	_, err := env.Auction.Create(env.Ctx, auction.CreateRequest{
		Collection: collectionAddr, TokenId: "1", Seller: seller, Quantity: 1,
		MinBid: big.NewInt(100), Duration: time.Hour,
	})
	require.NoError(t, err)
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}
	env.Fund(t, bidderA, 10000)
	require.NoError(t, env.Auction.PlaceBid(env.Ctx, id, bidderA, big.NewInt(10000)))
	before := env.TotalSupply(t, seller, bidderA, markettest.Treasury)

	env.Clock.Add(time.Hour)
	require.NoError(t, env.Auction.End(env.Ctx, id, bidderB))

	require.Equal(t, int64(250), env.Balance(t, markettest.Treasury).Int64())
	require.Equal(t, int64(9750), env.Balance(t, seller).Int64())
	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(bidderA))
	after := env.TotalSupply(t, seller, bidderA, markettest.Treasury)
	require.Zero(t, before.Cmp(after))

	// ending twice is rejected
	require.ErrorIs(t, env.Auction.End(env.Ctx, id, bidderB), domain.ErrNotActive)
}

func TestMinNextBidRoundsUp(t *testing.T) {
	a := &auction.Auction{
		MinBid:        big.NewInt(1),
		HighestBid:    big.NewInt(10),
		HighestBidder: bidderA,
	}
	// 500 bp of 10 floors to 0; the minimum raise is still 1
	require.Equal(t, int64(11), a.MinNextBid(usecase.DefaultBidIncrementBps).Int64())

	a.HighestBid = big.NewInt(1000)
	require.Equal(t, int64(1050), a.MinNextBid(usecase.DefaultBidIncrementBps).Int64())
}
