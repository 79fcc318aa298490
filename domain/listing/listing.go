package listing

import (
	"math/big"
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Listing is a fixed-price sale entry. At most one listing is active per
// asset; sold or cancelled listings are deactivated in place rather than
// deleted so history queries keep working.
type Listing struct {
	Collection   domain.Address `json:"collection"`
	TokenId      domain.TokenId `json:"tokenId"`
	Seller       domain.Address `json:"seller"`
	Quantity     uint64         `json:"quantity"`
	PricePerItem *big.Int       `json:"pricePerItem"`
	Private      bool           `json:"private"`
	AllowedBuyer domain.Address `json:"allowedBuyer,omitempty"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (l *Listing) AssetId() domain.AssetId {
	return domain.AssetId{Collection: l.Collection, TokenId: l.TokenId}
}

// TotalPrice is PricePerItem * Quantity.
func (l *Listing) TotalPrice() *big.Int {
	return new(big.Int).Mul(l.PricePerItem, new(big.Int).SetUint64(l.Quantity))
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
	FindOne(ctx ctx.Ctx, id domain.AssetId) (*Listing, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
	Upsert(ctx ctx.Ctx, l *Listing) error
}

type ListRequest struct {
	Collection   domain.Address
	TokenId      domain.TokenId
	Seller       domain.Address
	Quantity     uint64
	PricePerItem *big.Int
	Private      bool
	AllowedBuyer domain.Address
}

type UseCase interface {
	// List escrows the asset and records an active listing.
	List(ctx ctx.Ctx, req ListRequest) (*Listing, error)
	// Delist deactivates the caller's listing and returns the asset.
	// Permitted while the market is paused.
	Delist(ctx ctx.Ctx, id domain.AssetId, seller domain.Address) error
	// Buy settles the listing: splits payment, releases the asset to buyer
	// and refunds overpayment best-effort.
	Buy(ctx ctx.Ctx, id domain.AssetId, buyer domain.Address, payment *big.Int) error
	// Deactivate marks the listing inactive without settlement. Used by the
	// offer engine when an accepted offer moves the underlying asset.
	Deactivate(ctx ctx.Ctx, id domain.AssetId) error

	Get(ctx ctx.Ctx, id domain.AssetId) (*Listing, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
}
