// Package bank models the native-currency boundary: accounts, transfers and
// receiver hooks. Balances live in the state database so currency movements
// commit and roll back together with the market operation that caused them.
//
// Receiver hooks are the currency-side reentrancy surface: a hook may reject
// the transfer or call back into the market. A rejected transfer restores
// both balances before returning, so even a best-effort transfer that fails
// inside a larger operation leaves no partial effect.
package bank

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

var bucketBalances = []byte("bank:balances")

// Hook observes an incoming currency transfer.
type Hook interface {
	OnFundsReceived(ctx bCtx.Ctx, from, to domain.Address, amount *big.Int) error
}

type Bank interface {
	BalanceOf(ctx bCtx.Ctx, addr domain.Address) (*big.Int, error)
	// Transfer moves amount between accounts, invoking the recipient's hook.
	// Fails with ErrInsufficientFunds when the sender's balance is short and
	// ErrTransferFailed when the recipient rejects the funds.
	Transfer(ctx bCtx.Ctx, from, to domain.Address, amount *big.Int) error
	// Mint credits an account out of thin air. Genesis/test funding only.
	Mint(ctx bCtx.Ctx, addr domain.Address, amount *big.Int) error
	SetHook(addr domain.Address, hook Hook)
}

type impl struct {
	db    *statedb.DB
	hooks map[domain.Address]Hook
}

func New(db *statedb.DB) Bank {
	return &impl{db: db, hooks: map[domain.Address]Hook{}}
}

// SetHook installs the receiver hook for addr; a nil hook removes it.
func (b *impl) SetHook(addr domain.Address, hook Hook) {
	if hook == nil {
		delete(b.hooks, addr.ToLower())
		return
	}
	b.hooks[addr.ToLower()] = hook
}

func balanceKey(addr domain.Address) []byte {
	return []byte(addr.ToLowerStr())
}

func getBalance(tx *statedb.Tx, addr domain.Address) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := tx.GetJSON(bucketBalances, balanceKey(addr), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func putBalance(tx *statedb.Tx, addr domain.Address, balance *big.Int) error {
	return tx.PutJSON(bucketBalances, balanceKey(addr), balance)
}

func (b *impl) BalanceOf(ctx bCtx.Ctx, addr domain.Address) (*big.Int, error) {
	balance := new(big.Int)
	err := b.db.View(func(tx *statedb.Tx) error {
		var err error
		balance, err = getBalance(tx, addr)
		return err
	})
	return balance, err
}

func (b *impl) Mint(ctx bCtx.Ctx, addr domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return domain.ErrZeroAmount
	}
	return b.db.Update(func(tx *statedb.Tx) error {
		balance, err := getBalance(tx, addr)
		if err != nil {
			return err
		}
		return putBalance(tx, addr, balance.Add(balance, amount))
	})
}

func (b *impl) Transfer(ctx bCtx.Ctx, from, to domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return domain.ErrZeroAmount
	}
	return b.db.Update(func(tx *statedb.Tx) error {
		fromBalance, err := getBalance(tx, from)
		if err != nil {
			return err
		}
		if fromBalance.Cmp(amount) < 0 {
			return xerrors.Errorf("balance %s short of %s: %w", fromBalance, amount, domain.ErrInsufficientFunds)
		}
		toBalance, err := getBalance(tx, to)
		if err != nil {
			return err
		}
		if err := putBalance(tx, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
			return err
		}
		if err := putBalance(tx, to, new(big.Int).Add(toBalance, amount)); err != nil {
			return err
		}
		if hook, ok := b.hooks[to.ToLower()]; ok {
			if err := hook.OnFundsReceived(ctx, from, to, amount); err != nil {
				// restore both balances so a best-effort transfer that fails
				// inside a larger operation leaves no partial effect
				if err := putBalance(tx, from, fromBalance); err != nil {
					return err
				}
				if err := putBalance(tx, to, toBalance); err != nil {
					return err
				}
				return xerrors.Errorf("recipient %s rejected funds: %w", to, domain.ErrTransferFailed)
			}
		}
		return nil
	})
}
