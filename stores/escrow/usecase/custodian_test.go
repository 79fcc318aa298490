package usecase_test

import (
	"testing"

	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/markettest"
	"github.com/stretchr/testify/require"
)

var (
	collectionAddr = domain.Address("0x000000000000000000000000000000c0113c7101")
	holder         = domain.Address("0x0000000000000000000000000000000000801d37")
	stranger       = domain.Address("0x0000000000000000000000000000000000057a8e")
)

func TestDepositRequiresOwnership(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, stranger, domain.MarketAccount, true))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	err := env.Custodian.Deposit(env.Ctx, id, stranger, 1)
	require.ErrorIs(t, err, domain.ErrNotOwner)
	require.True(t, domain.IsAuthorizationError(err))
}

func TestDepositRequiresApproval(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	err := env.Custodian.Deposit(env.Ctx, id, holder, 1)
	require.ErrorIs(t, err, domain.ErrNotApproved)
}

func TestDepositAndRelease(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	require.NoError(t, env.Custodian.Deposit(env.Ctx, id, holder, 1))
	owner, err := token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(domain.MarketAccount))

	record, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.NoError(t, err)
	require.Equal(t, holder.ToLower(), record.Depositor)
	require.Equal(t, uint64(1), record.Quantity)

	require.NoError(t, env.Custodian.Release(env.Ctx, id, stranger, 1))
	owner, err = token.OwnerOf(env.Ctx, "1")
	require.NoError(t, err)
	require.True(t, owner.Equals(stranger))
	_, err = env.Custodian.DepositorOf(env.Ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSingleUnitRejectsQuantity(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewSingleUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "1", holder))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "1"}

	err := env.Custodian.Deposit(env.Ctx, id, holder, 3)
	require.ErrorIs(t, err, domain.ErrBadQuantity)
}

func TestMultiUnitPartialEscrow(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewMultiUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "7", holder, 10))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "7"}

	require.NoError(t, env.Custodian.Deposit(env.Ctx, id, holder, 4))
	balance, err := token.BalanceOf(env.Ctx, holder, "7")
	require.NoError(t, err)
	require.Equal(t, uint64(6), balance)

	// releasing more than escrowed is rejected
	err = env.Custodian.Release(env.Ctx, id, stranger, 5)
	require.ErrorIs(t, err, domain.ErrBadQuantity)

	require.NoError(t, env.Custodian.Release(env.Ctx, id, stranger, 3))
	record, err := env.Custodian.DepositorOf(env.Ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), record.Quantity)

	// a second depositor cannot pile onto the same escrow record
	require.NoError(t, token.SetApprovalForAll(env.Ctx, stranger, domain.MarketAccount, true))
	err = env.Custodian.Deposit(env.Ctx, id, stranger, 1)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDepositInsufficientUnits(t *testing.T) {
	env := markettest.NewEnv(t)
	token := env.NewMultiUnitCollection(t, collectionAddr)
	require.NoError(t, token.Mint(env.Ctx, "7", holder, 2))
	require.NoError(t, token.SetApprovalForAll(env.Ctx, holder, domain.MarketAccount, true))
	id := domain.AssetId{Collection: collectionAddr, TokenId: "7"}

	err := env.Custodian.Deposit(env.Ctx, id, holder, 3)
	require.ErrorIs(t, err, domain.ErrNotOwner)
}
