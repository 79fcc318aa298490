package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/nifty-xyz/gomarket/domain"
)

// NativeDecimals is the base-unit scale of the settlement currency.
const NativeDecimals = int32(18)

// Service converts between base-unit amounts used by the engines and
// display-unit amounts shown on the API surface.
type Service interface {
	Display(amount *big.Int) string
	ToBaseUnits(display string) (*big.Int, error)
}

type impl struct {
	decimals int32
}

func New(decimals int32) Service {
	if decimals <= 0 {
		decimals = NativeDecimals
	}
	return &impl{decimals: decimals}
}

func (im *impl) Display(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -im.decimals).String()
}

func (im *impl) ToBaseUnits(display string) (*big.Int, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return nil, domain.ErrBadParamInput
	}
	d = d.Shift(im.decimals)
	if !d.IsInteger() || d.Sign() < 0 {
		// sub-base-unit precision cannot settle
		return nil, domain.ErrBadParamInput
	}
	return d.BigInt(), nil
}
