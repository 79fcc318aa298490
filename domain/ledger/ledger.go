package ledger

import (
	"math/big"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

// Repo tracks pending native-currency balances owed to beneficiaries: outbid
// refunds and failed best-effort transfers. Balances only ever grow except
// through Zero, which is called under the withdrawal path.
type Repo interface {
	BalanceOf(ctx ctx.Ctx, beneficiary domain.Address) (*big.Int, error)
	Add(ctx ctx.Ctx, beneficiary domain.Address, amount *big.Int) error
	Zero(ctx ctx.Ctx, beneficiary domain.Address) error
}

type UseCase interface {
	// Credit records amount as owed to the beneficiary. The corresponding
	// funds must already sit on the market's escrow account.
	Credit(ctx ctx.Ctx, beneficiary domain.Address, amount *big.Int) error
	// Withdraw zeroes the caller's balance before transferring it out; a
	// failed transfer aborts the operation so the balance stays credited and
	// retrying is the recovery path. Fails with ErrNothingToClaim on a zero
	// balance.
	Withdraw(ctx ctx.Ctx, beneficiary domain.Address) (*big.Int, error)
	BalanceOf(ctx ctx.Ctx, beneficiary domain.Address) (*big.Int, error)
}
