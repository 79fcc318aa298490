// Package assets models the market's view of external asset contracts: a
// registry of known contracts, a capability probe selecting single-unit or
// multi-unit semantics, and uniform handles the engines operate on.
package assets

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Capability interface ids, 4-byte ERC165 convention.
var (
	SingleUnitInterfaceId = InterfaceId("80ac58cd")
	MultiUnitInterfaceId  = InterfaceId("d9b67a26")
	RoyaltyInterfaceId    = InterfaceId("2a55205a")
)

func InterfaceId(hex string) [4]byte {
	var id [4]byte
	copy(id[:], common.Hex2Bytes(hex))
	return id
}

// Contract is the minimal surface every registered asset contract exposes.
type Contract interface {
	SupportsInterface(ctx bCtx.Ctx, id [4]byte) (bool, error)
}

// SingleUnitContract has exactly-one-owner semantics per token.
type SingleUnitContract interface {
	Contract
	OwnerOf(ctx bCtx.Ctx, tokenId domain.TokenId) (domain.Address, error)
	IsApprovedForAll(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error)
	Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address) error
}

// MultiUnitContract has balance-and-amount semantics per token.
type MultiUnitContract interface {
	Contract
	BalanceOf(ctx bCtx.Ctx, owner domain.Address, tokenId domain.TokenId) (uint64, error)
	IsApprovedForAll(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error)
	Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error
}

// RoyaltyContract reports the collection's royalty for a sale. Optional; the
// calculator treats a missing or failing capability as zero royalty.
type RoyaltyContract interface {
	RoyaltyInfo(ctx bCtx.Ctx, tokenId domain.TokenId, salePrice *big.Int) (domain.Address, *big.Int, error)
}

type Kind int

const (
	KindSingleUnit Kind = iota
	KindMultiUnit
)

// Handle is the uniform view the custodian uses after probing. Selected once
// at escrow time; all downstream logic operates on the abstraction.
type Handle interface {
	Kind() Kind
	// Balance is the number of units owner holds (0 or 1 for single-unit).
	Balance(ctx bCtx.Ctx, owner domain.Address, tokenId domain.TokenId) (uint64, error)
	Approved(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error)
	Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error
}

// Registry resolves collection addresses to contracts and probes their
// capabilities.
type Registry interface {
	Register(addr domain.Address, c Contract)
	Resolve(addr domain.Address) (Contract, bool)
	// Probe selects a handle for the collection. Probe failure or a target
	// without executable code degrades to single-unit semantics.
	Probe(ctx bCtx.Ctx, addr domain.Address) Handle
	// RoyaltyInfo queries the collection's royalty capability. Any failure is
	// reported as ErrExternalCall; callers treat it as capability absent.
	RoyaltyInfo(ctx bCtx.Ctx, addr domain.Address, tokenId domain.TokenId, salePrice *big.Int) (domain.Address, *big.Int, error)
}
