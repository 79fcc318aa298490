package escrow

import (
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Record is the custody entry for an escrowed asset. Once custody moves to
// the market, the asset contract reports the market as owner of record, so
// the depositor address here is the only way to recover who is entitled to
// sale proceeds.
type Record struct {
	Collection domain.Address `json:"collection"`
	TokenId    domain.TokenId `json:"tokenId"`
	Depositor  domain.Address `json:"depositor"`
	Quantity   uint64         `json:"quantity"`
	EscrowedAt time.Time      `json:"escrowedAt"`
}

func (r *Record) AssetId() domain.AssetId {
	return domain.AssetId{Collection: r.Collection, TokenId: r.TokenId}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, id domain.AssetId) (*Record, error)
	Upsert(ctx ctx.Ctx, r *Record) error
	Delete(ctx ctx.Ctx, id domain.AssetId) error
}

// Custodian escrows and releases assets on behalf of the engines. Both
// entry points verify the outcome of the underlying transfer rather than
// assuming success.
type Custodian interface {
	// Deposit takes custody of quantity units from the holder. Fails with
	// ErrNotOwner when from does not hold enough units and ErrNotApproved
	// when the market lacks transfer approval.
	Deposit(ctx ctx.Ctx, id domain.AssetId, from domain.Address, quantity uint64) error
	// Release hands the escrowed units to the recipient and clears the
	// custody record.
	Release(ctx ctx.Ctx, id domain.AssetId, to domain.Address, quantity uint64) error
	// DepositorOf returns the custody record, or ErrNotFound when the asset
	// is not in escrow.
	DepositorOf(ctx ctx.Ctx, id domain.AssetId) (*Record, error)
}
