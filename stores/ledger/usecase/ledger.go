package usecase

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/base/metrics"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/ledger"
	"github.com/nifty-xyz/gomarket/service/bank"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type LedgerUseCaseCfg struct {
	DB            *statedb.DB
	LedgerRepo    ledger.Repo
	Bank          bank.Bank
	EventRecorder domain.EventRecorder
}

type impl struct {
	db            *statedb.DB
	ledgerRepo    ledger.Repo
	bank          bank.Bank
	eventRecorder domain.EventRecorder
	metrics       metrics.Service
	busy          bool
}

func New(cfg *LedgerUseCaseCfg) ledger.UseCase {
	return &impl{
		db:            cfg.DB,
		ledgerRepo:    cfg.LedgerRepo,
		bank:          cfg.Bank,
		eventRecorder: cfg.EventRecorder,
		metrics:       metrics.New("ledger"),
	}
}

func (im *impl) BalanceOf(c bCtx.Ctx, beneficiary domain.Address) (*big.Int, error) {
	return im.ledgerRepo.BalanceOf(c, beneficiary)
}

func (im *impl) Credit(c bCtx.Ctx, beneficiary domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return domain.ErrZeroAmount
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		return im.ledgerRepo.Add(c, beneficiary, amount)
	})
}

func (im *impl) Withdraw(c bCtx.Ctx, beneficiary domain.Address) (*big.Int, error) {
	if im.busy {
		return nil, xerrors.Errorf("withdraw: %w", domain.ErrReentrantCall)
	}
	im.busy = true
	defer func() { im.busy = false }()

	var amount *big.Int
	err := im.db.Update(func(tx *statedb.Tx) error {
		balance, err := im.ledgerRepo.BalanceOf(c, beneficiary)
		if err != nil {
			return err
		}
		if !domain.IsPositive(balance) {
			return domain.ErrNothingToClaim
		}
		// zero the balance before paying out so a reentrant withdrawal
		// observes nothing left to claim
		if err := im.ledgerRepo.Zero(c, beneficiary); err != nil {
			return err
		}
		if err := im.eventRecorder.Record(c, &domain.Event{
			Type:   domain.EventWithdrawal,
			To:     beneficiary,
			Amount: balance.String(),
		}); err != nil {
			return err
		}
		if err := im.bank.Transfer(c, domain.MarketAccount, beneficiary, balance); err != nil {
			return err
		}
		amount = balance
		return nil
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":         err,
			"beneficiary": beneficiary,
		}).Error("failed to withdraw")
		return nil, err
	}
	im.metrics.BumpSum("withdraw.count", 1)
	return amount, nil
}
