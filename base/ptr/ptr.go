package ptr

import (
	"math/big"
	"time"
)

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }

func Int32(v int32) *int32 { return &v }

func Int64(v int64) *int64 { return &v }

func Uint64(v uint64) *uint64 { return &v }

func Float64(v float64) *float64 { return &v }

func Time(v time.Time) *time.Time { return &v }

// BigInt copies v so callers cannot alias stored amounts.
func BigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
