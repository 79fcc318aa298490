package repository

import (
	"math/big"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/ledger"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketLedger = []byte("ledger")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) ledger.Repo {
	return &impl{db: db}
}

func (im *impl) BalanceOf(c ctx.Ctx, beneficiary domain.Address) (*big.Int, error) {
	balance := new(big.Int)
	err := im.db.View(func(tx *statedb.Tx) error {
		_, err := tx.GetJSON(bucketLedger, []byte(beneficiary.ToLowerStr()), balance)
		return err
	})
	return balance, err
}

func (im *impl) Add(c ctx.Ctx, beneficiary domain.Address, amount *big.Int) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		balance := new(big.Int)
		if _, err := tx.GetJSON(bucketLedger, []byte(beneficiary.ToLowerStr()), balance); err != nil {
			return err
		}
		return tx.PutJSON(bucketLedger, []byte(beneficiary.ToLowerStr()), balance.Add(balance, amount))
	})
}

func (im *impl) Zero(c ctx.Ctx, beneficiary domain.Address) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketLedger, []byte(beneficiary.ToLowerStr()), new(big.Int))
	})
}
