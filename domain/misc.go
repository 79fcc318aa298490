package domain

import (
	"fmt"
	"math/big"
	"strings"
)

type SortDir int8

const (
	SortDirAsc  SortDir = 1
	SortDirDesc SortDir = -1
)

// BasisPointsDenominator is the share denominator used for fees, royalties
// and splits. 10,000 bp == 100%.
const BasisPointsDenominator = 10000

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

// MarketAccount is the market's own account: it owns escrowed assets, holds
// offer escrow and pending-withdrawal funds, and retains royalty split dust.
const MarketAccount = Address("0x00000000000000000000000000006d61726b6574")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0 || a.Equals(EmptyAddress)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

// AssetId identifies a single asset inside a collection. It is the key for
// listings, auctions, offer lists and escrow records.
type AssetId struct {
	Collection Address `json:"collection" bson:"collection"`
	TokenId    TokenId `json:"tokenId" bson:"tokenId"`
}

func (id AssetId) ToLower() AssetId {
	return AssetId{Collection: id.Collection.ToLower(), TokenId: id.TokenId}
}

func (id AssetId) String() string {
	return fmt.Sprintf("%s:%s", id.Collection.ToLowerStr(), id.TokenId)
}

// Bps computes floor(amount * bps / 10000).
func Bps(amount *big.Int, bps int64) *big.Int {
	res := new(big.Int).Mul(amount, big.NewInt(bps))
	return res.Div(res, big.NewInt(BasisPointsDenominator))
}

// IsPositive reports whether v is a non-nil, strictly positive amount.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// ParseAmount parses a non-negative base-10 amount in base units.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrBadParamInput
	}
	return v, nil
}
