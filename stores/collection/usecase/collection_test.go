package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/markettest"
)

var colAddr = domain.Address("0x00000000000000000000000000000000c0113c70")

func TestRegisterStartsDenied(t *testing.T) {
	env := markettest.NewEnv(t)

	err := env.Collection.Register(env.Ctx, &collection.Collection{
		Address: colAddr,
		Name:    "test collection",
		Creator: markettest.Creator,
		Allowed: true, // ignored, allowlisting is a governance act
	})
	require.NoError(t, err)

	allowed, err := env.Collection.IsAllowed(env.Ctx, colAddr)
	require.NoError(t, err)
	require.False(t, allowed)

	got, err := env.Collection.Get(env.Ctx, colAddr)
	require.NoError(t, err)
	require.False(t, got.Allowed)
	require.Equal(t, markettest.Creator, got.Creator)
	require.False(t, got.RegisteredAt.IsZero())
}

func TestRegisterDuplicate(t *testing.T) {
	env := markettest.NewEnv(t)

	col := &collection.Collection{Address: colAddr, Creator: markettest.Creator}
	require.NoError(t, env.Collection.Register(env.Ctx, col))

	err := env.Collection.Register(env.Ctx, &collection.Collection{Address: colAddr, Creator: markettest.Creator})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	env := markettest.NewEnv(t)

	err := env.Collection.Register(env.Ctx, &collection.Collection{Creator: markettest.Creator})
	require.ErrorIs(t, err, domain.ErrBadParamInput)

	err = env.Collection.Register(env.Ctx, &collection.Collection{Address: colAddr})
	require.ErrorIs(t, err, domain.ErrBadParamInput)
}

func TestIsAllowedUnknownCollection(t *testing.T) {
	env := markettest.NewEnv(t)

	allowed, err := env.Collection.IsAllowed(env.Ctx, colAddr)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestGovernanceAllowsAndFindAll(t *testing.T) {
	env := markettest.NewEnv(t)

	require.NoError(t, env.Collection.Register(env.Ctx, &collection.Collection{
		Address: colAddr,
		Creator: markettest.Creator,
	}))
	require.NoError(t, env.Governance.Apply(env.Ctx, markettest.Admin, governance.Change{
		Kind:    governance.ChangeAllowCollection,
		Address: colAddr,
	}))

	allowed, err := env.Collection.IsAllowed(env.Ctx, colAddr)
	require.NoError(t, err)
	require.True(t, allowed)

	all, err := env.Collection.FindAll(env.Ctx, collection.WithAllowedOnly())
	require.NoError(t, err)
	require.Len(t, all, 1)

	byCreator, err := env.Collection.FindAll(env.Ctx, collection.WithCreator(markettest.Creator))
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
}
