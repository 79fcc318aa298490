package auction

import (
	"math/big"
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Auction is an English auction over an escrowed asset. HighestBid and
// HighestBidder mutate on every accepted bid; outbid funds are credited to
// the withdrawal ledger, never pushed back eagerly.
//
// Anti-sniping pushes EndTime forward by the extension window on every late
// bid with no cap on total extensions; see Extensions for monitoring. An
// attacker can keep an auction alive with minimal-increment bids, which is a
// recorded policy decision rather than an oversight.
type Auction struct {
	Collection    domain.Address `json:"collection"`
	TokenId       domain.TokenId `json:"tokenId"`
	Seller        domain.Address `json:"seller"`
	Quantity      uint64         `json:"quantity"`
	MinBid        *big.Int       `json:"minBid"`
	ReservePrice  *big.Int       `json:"reservePrice,omitempty"`
	HighestBid    *big.Int       `json:"highestBid,omitempty"`
	HighestBidder domain.Address `json:"highestBidder,omitempty"`
	EndTime       time.Time      `json:"endTime"`
	Private       bool           `json:"private"`
	AllowedBidder domain.Address `json:"allowedBidder,omitempty"`
	Active        bool           `json:"active"`
	Extensions    int            `json:"extensions"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (a *Auction) AssetId() domain.AssetId {
	return domain.AssetId{Collection: a.Collection, TokenId: a.TokenId}
}

func (a *Auction) HasBids() bool {
	return !a.HighestBidder.IsEmpty() && domain.IsPositive(a.HighestBid)
}

// MinNextBid is the smallest acceptable bid given the current state: the
// minimum bid when no bids exist, otherwise the highest bid raised by the
// increment in basis points.
func (a *Auction) MinNextBid(incrementBps int64) *big.Int {
	if !a.HasBids() {
		return new(big.Int).Set(a.MinBid)
	}
	min := new(big.Int).Add(a.HighestBid, domain.Bps(a.HighestBid, incrementBps))
	if min.Cmp(a.HighestBid) == 0 {
		// zero increment on a tiny bid still has to strictly exceed it
		min.Add(min, big.NewInt(1))
	}
	return min
}

type FindAllOptions struct {
	Seller     *domain.Address
	Collection *domain.Address
	ActiveOnly bool
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(o *FindAllOptions) error {
		seller = seller.ToLower()
		o.Seller = &seller
		return nil
	}
}

func WithCollection(collection domain.Address) FindAllOptionsFunc {
	return func(o *FindAllOptions) error {
		collection = collection.ToLower()
		o.Collection = &collection
		return nil
	}
}

func WithActiveOnly() FindAllOptionsFunc {
	return func(o *FindAllOptions) error {
		o.ActiveOnly = true
		return nil
	}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, id domain.AssetId) (*Auction, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Upsert(ctx ctx.Ctx, a *Auction) error
}

type CreateRequest struct {
	Collection    domain.Address
	TokenId       domain.TokenId
	Seller        domain.Address
	Quantity      uint64
	MinBid        *big.Int
	ReservePrice  *big.Int
	Duration      time.Duration
	Private       bool
	AllowedBidder domain.Address
}

type UseCase interface {
	Create(ctx ctx.Ctx, req CreateRequest) (*Auction, error)
	// PlaceBid escrows the bid amount and credits the previous highest
	// bidder's refund to the withdrawal ledger.
	PlaceBid(ctx ctx.Ctx, id domain.AssetId, bidder domain.Address, amount *big.Int) error
	// Cancel is seller-only and permitted only while no bids exist.
	Cancel(ctx ctx.Ctx, id domain.AssetId, seller domain.Address) error
	// End settles an expired auction; callable by anyone.
	End(ctx ctx.Ctx, id domain.AssetId, caller domain.Address) error
	// Deactivate deactivates the auction and refunds the highest bidder via
	// the ledger. Used by the offer engine during reconciliation.
	Deactivate(ctx ctx.Ctx, id domain.AssetId) error

	Get(ctx ctx.Ctx, id domain.AssetId) (*Auction, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
}
