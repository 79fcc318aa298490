package usecase_test

import (
	"math/big"
	"testing"

	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/markettest"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

var (
	collectionAddr = domain.Address("0x000000000000000000000000000000c0113c7101")
	royaltyDest    = domain.Address("0x000000000000000000000000000000000007011a")
)

func TestComputeSplitNoRoyalty(t *testing.T) {
	env := markettest.NewEnv(t)
	env.NewSingleUnitCollection(t, collectionAddr)
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(10000))
	require.NoError(t, err)
	require.Equal(t, int64(250), breakdown.Fee.Int64())
	require.Equal(t, int64(0), breakdown.Royalty.Int64())
	require.Empty(t, breakdown.Payouts)
	require.Equal(t, int64(9750), breakdown.SellerProceeds.Int64())
}

func TestComputeSplitWithRoyalty(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	token.SetRoyalty(&assets.RoyaltyPolicy{Receiver: royaltyDest, Bps: 1000})
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(10000))
	require.NoError(t, err)
	require.Equal(t, int64(250), breakdown.Fee.Int64())
	require.Equal(t, int64(1000), breakdown.Royalty.Int64())
	require.Len(t, breakdown.Payouts, 1)
	require.Equal(t, royaltyDest.ToLower(), breakdown.Payouts[0].Recipient)
	require.Equal(t, int64(8750), breakdown.SellerProceeds.Int64())

	// fee + royalty + proceeds always reassembles the price
	total := new(big.Int).Add(breakdown.Fee, breakdown.Royalty)
	total.Add(total, breakdown.SellerProceeds)
	require.Equal(t, int64(10000), total.Int64())
}

func TestRoyaltyClampedToCap(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	// collection reports 90%, the policy cap is 25%
	token.SetRoyalty(&assets.RoyaltyPolicy{Receiver: royaltyDest, Bps: 9000})
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(10000))
	require.NoError(t, err)
	require.Equal(t, int64(2500), breakdown.Royalty.Int64())
	require.Equal(t, int64(7250), breakdown.SellerProceeds.Int64())
}

func TestRoyaltyAboveSalePrice(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	token.SetRoyalty(&assets.RoyaltyPolicy{
		Override: func(domain.TokenId, *big.Int) (domain.Address, *big.Int, error) {
			// a misbehaving collection reporting more than the sale price
			return royaltyDest, big.NewInt(1 << 40), nil
		},
	})
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(10000))
	require.NoError(t, err)
	// clamped to the cap, never eating the fee or going negative
	require.Equal(t, int64(2500), breakdown.Royalty.Int64())
	require.Equal(t, int64(250), breakdown.Fee.Int64())
	require.Equal(t, int64(7250), breakdown.SellerProceeds.Int64())
}

func TestRoyaltyQueryFailureMeansZero(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	token.SetRoyalty(&assets.RoyaltyPolicy{
		Override: func(domain.TokenId, *big.Int) (domain.Address, *big.Int, error) {
			return domain.EmptyAddress, nil, xerrors.New("boom")
		},
	})
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(10000))
	require.NoError(t, err)
	require.Equal(t, int64(0), breakdown.Royalty.Int64())
	require.Equal(t, int64(9750), breakdown.SellerProceeds.Int64())
}

func TestSplitDividesRoyalty(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	token.SetRoyalty(&assets.RoyaltyPolicy{Receiver: royaltyDest, Bps: 1000})
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	recipientA := domain.Address("0x000000000000000000000000000000000000a11a")
	recipientB := domain.Address("0x000000000000000000000000000000000000b0bb")
	recipientC := domain.Address("0x000000000000000000000000000000000000cccc")
	require.NoError(t, env.Calculator.SetSplit(env.Ctx, markettest.Creator, &royalty.Split{
		Collection: collectionAddr,
		TokenId:    "1",
		Shares: []royalty.Share{
			{Recipient: recipientA, Bps: 3333},
			{Recipient: recipientB, Bps: 3333},
			{Recipient: recipientC, Bps: 3334},
		},
	}))

	// royalty is 100 on a price of 1000; shares floor-divide
	breakdown, err := env.Calculator.ComputeSplit(env.Ctx, id, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(100), breakdown.Royalty.Int64())
	require.Len(t, breakdown.Payouts, 3)
	paid := new(big.Int)
	for _, p := range breakdown.Payouts {
		paid.Add(paid, p.Amount)
	}
	// 33 + 33 + 33: one unit of dust stays on the market account
	require.Equal(t, int64(99), paid.Int64())
	require.True(t, paid.Cmp(breakdown.Royalty) <= 0)
}

func TestSetSplitAuthorization(t *testing.T) {
	env := markettest.NewEnv(t)
	env.NewSingleUnitCollection(t, collectionAddr)
	split := &royalty.Split{
		Collection: collectionAddr,
		TokenId:    "1",
		Shares:     []royalty.Share{{Recipient: royaltyDest, Bps: 10000}},
	}

	stranger := domain.Address("0x0000000000000000000000000000000000057a8e")
	err := env.Calculator.SetSplit(env.Ctx, stranger, split)
	require.ErrorIs(t, err, domain.ErrNotEntitled)

	require.NoError(t, env.Calculator.SetSplit(env.Ctx, markettest.Creator, split))
	require.NoError(t, env.Calculator.SetSplit(env.Ctx, markettest.Admin, split))
}

func TestSetSplitValidation(t *testing.T) {
	env := markettest.NewEnv(t)
	env.NewSingleUnitCollection(t, collectionAddr)

	for _, shares := range [][]royalty.Share{
		nil,
		{{Recipient: royaltyDest, Bps: 9999}},
		{{Recipient: royaltyDest, Bps: 5000}, {Recipient: royaltyDest, Bps: 5001}},
		{{Recipient: domain.EmptyAddress, Bps: 10000}},
		{{Recipient: royaltyDest, Bps: 10001}, {Recipient: royaltyDest, Bps: -1}},
	} {
		err := env.Calculator.SetSplit(env.Ctx, markettest.Creator, &royalty.Split{
			Collection: collectionAddr, TokenId: "1", Shares: shares,
		})
		require.ErrorIs(t, err, domain.ErrBadSplit)
	}
}
