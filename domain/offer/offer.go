package offer

import (
	"math/big"
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Offer is a funded bid on a single asset. The full price is pulled from the
// offeror when the offer is made and held by the market until acceptance or
// cancellation.
//
// Offers for one asset form an append-only sequence. Acceptance tombstones
// the entry in place (Active=false); cancellation swap-removes it, so
// positions are unordered and indices are only stable until the next cancel.
type Offer struct {
	Collection domain.Address `json:"collection"`
	TokenId    domain.TokenId `json:"tokenId"`
	Offeror    domain.Address `json:"offeror"`
	Price      *big.Int       `json:"price"`
	Quantity   uint64         `json:"quantity"`
	Deadline   time.Time      `json:"deadline"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (o *Offer) AssetId() domain.AssetId {
	return domain.AssetId{Collection: o.Collection, TokenId: o.TokenId}
}

func (o *Offer) Expired(now time.Time) bool {
	return now.After(o.Deadline)
}

// CollectionOffer is an open offer on any asset of a collection. Remaining
// starts at the offered quantity and decrements on each acceptance; the offer
// deactivates only when Remaining hits zero, so several sellers can fill one
// offer.
type CollectionOffer struct {
	Collection   domain.Address `json:"collection"`
	Offeror      domain.Address `json:"offeror"`
	PricePerItem *big.Int       `json:"pricePerItem"`
	Remaining    uint64         `json:"remaining"`
	Deadline     time.Time      `json:"deadline"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (o *CollectionOffer) Expired(now time.Time) bool {
	return now.After(o.Deadline)
}

// EscrowedRemainder is the funds still held for the unfilled quantity.
func (o *CollectionOffer) EscrowedRemainder() *big.Int {
	return new(big.Int).Mul(o.PricePerItem, new(big.Int).SetUint64(o.Remaining))
}

type Repo interface {
	// FindByAsset returns the offer sequence for one asset, tombstones
	// included, in storage order.
	FindByAsset(ctx ctx.Ctx, id domain.AssetId) ([]*Offer, error)
	// Append adds an offer to the asset's sequence and returns its index.
	Append(ctx ctx.Ctx, o *Offer) (int, error)
	// Update overwrites the offer at index in place.
	Update(ctx ctx.Ctx, id domain.AssetId, index int, o *Offer) error
	// SwapRemove removes the offer at index by swapping in the last entry.
	SwapRemove(ctx ctx.Ctx, id domain.AssetId, index int) error
}

type CollectionRepo interface {
	FindByCollection(ctx ctx.Ctx, collection domain.Address) ([]*CollectionOffer, error)
	Append(ctx ctx.Ctx, o *CollectionOffer) (int, error)
	Update(ctx ctx.Ctx, collection domain.Address, index int, o *CollectionOffer) error
	SwapRemove(ctx ctx.Ctx, collection domain.Address, index int) error
}

type MakeRequest struct {
	Collection domain.Address
	TokenId    domain.TokenId
	Offeror    domain.Address
	Price      *big.Int
	Quantity   uint64
	Deadline   time.Time
}

type MakeCollectionRequest struct {
	Collection   domain.Address
	Offeror      domain.Address
	PricePerItem *big.Int
	Quantity     uint64
	Deadline     time.Time
}

type UseCase interface {
	Make(ctx ctx.Ctx, req MakeRequest) (*Offer, int, error)
	// Cancel swap-removes the caller's offer and eagerly refunds the
	// escrowed amount.
	Cancel(ctx ctx.Ctx, id domain.AssetId, index int, offeror domain.Address) error
	// Accept settles the offer. The acceptor must hold the asset directly or
	// be the recorded depositor of an escrowed asset; any overlapping active
	// listing or auction is deactivated in the same operation.
	Accept(ctx ctx.Ctx, id domain.AssetId, index int, acceptor domain.Address) error

	MakeCollection(ctx ctx.Ctx, req MakeCollectionRequest) (*CollectionOffer, int, error)
	CancelCollection(ctx ctx.Ctx, collection domain.Address, index int, offeror domain.Address) error
	// AcceptCollection fills one unit of a collection offer with the given
	// asset, decrementing the remaining quantity.
	AcceptCollection(ctx ctx.Ctx, collection domain.Address, tokenId domain.TokenId, index int, acceptor domain.Address) error

	FindByAsset(ctx ctx.Ctx, id domain.AssetId) ([]*Offer, error)
	FindByCollection(ctx ctx.Ctx, collection domain.Address) ([]*CollectionOffer, error)
}
