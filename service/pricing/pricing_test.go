package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nifty-xyz/gomarket/domain"
)

func TestDisplay(t *testing.T) {
	svc := New(18)

	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.Equal(t, "1", svc.Display(one))

	half := new(big.Int).Div(one, big.NewInt(2))
	require.Equal(t, "0.5", svc.Display(half))

	require.Equal(t, "0", svc.Display(nil))
}

func TestToBaseUnits(t *testing.T) {
	svc := New(18)

	v, err := svc.ToBaseUnits("1.5")
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	require.Zero(t, want.Cmp(v))

	_, err = svc.ToBaseUnits("not-a-number")
	require.ErrorIs(t, err, domain.ErrBadParamInput)

	_, err = svc.ToBaseUnits("-1")
	require.ErrorIs(t, err, domain.ErrBadParamInput)

	// finer than one base unit
	_, err = svc.ToBaseUnits("0.0000000000000000001")
	require.ErrorIs(t, err, domain.ErrBadParamInput)
}

func TestRoundTrip(t *testing.T) {
	svc := New(18)

	v, err := svc.ToBaseUnits("123.456")
	require.NoError(t, err)
	require.Equal(t, "123.456", svc.Display(v))
}
