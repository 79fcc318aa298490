package royalty

import (
	"math/big"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Share is one recipient's cut of the royalty amount, in basis points of the
// royalty (not of the sale price).
type Share struct {
	Recipient domain.Address `json:"recipient"`
	Bps       int64          `json:"bps"`
}

// Split is an optional per-asset override distributing the royalty across
// several recipients. Shares must sum to exactly 10,000 bp, enforced when the
// split is configured.
type Split struct {
	Collection domain.Address `json:"collection"`
	TokenId    domain.TokenId `json:"tokenId"`
	Shares     []Share        `json:"shares"`
}

func (s *Split) Validate() error {
	if len(s.Shares) == 0 {
		return domain.ErrBadSplit
	}
	total := int64(0)
	for _, share := range s.Shares {
		if share.Bps <= 0 || share.Recipient.IsEmpty() {
			return domain.ErrBadSplit
		}
		total += share.Bps
	}
	if total != domain.BasisPointsDenominator {
		return domain.ErrBadSplit
	}
	return nil
}

type SplitRepo interface {
	FindOne(ctx ctx.Ctx, id domain.AssetId) (*Split, error)
	Upsert(ctx ctx.Ctx, s *Split) error
}

// Payout is one royalty transfer of a settlement.
type Payout struct {
	Recipient domain.Address
	Amount    *big.Int
}

// Breakdown is the full division of a sale price. Fee + Royalty +
// SellerProceeds always equals the sale price; the sum of Payouts may fall
// short of Royalty by per-recipient floor-division dust, which stays on the
// market's escrow account.
type Breakdown struct {
	Fee            *big.Int
	Royalty        *big.Int
	Payouts        []Payout
	SellerProceeds *big.Int
}

type Calculator interface {
	// ComputeSplit divides salePrice into platform fee, royalty payouts and
	// seller proceeds. A failing or absent royalty capability on the
	// collection yields zero royalty, never an error; reported royalties are
	// clamped to the policy cap.
	ComputeSplit(ctx ctx.Ctx, id domain.AssetId, salePrice *big.Int) (*Breakdown, error)
	// SetSplit configures a per-asset royalty split. Caller must be the
	// collection's registered creator or the market admin.
	SetSplit(ctx ctx.Ctx, caller domain.Address, s *Split) error
	GetSplit(ctx ctx.Ctx, id domain.AssetId) (*Split, error)
}
