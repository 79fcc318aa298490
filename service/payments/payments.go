// Package payments holds the settlement money movement shared by the
// listing, auction and offer engines.
package payments

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/domain/ledger"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/bank"
	"golang.org/x/xerrors"
)

type DistributorCfg struct {
	Bank          bank.Bank
	Governance    governance.UseCase
	Ledger        ledger.UseCase
	EventRecorder domain.EventRecorder
}

// Distributor moves settlement funds out of the market's escrow account.
type Distributor struct {
	bank          bank.Bank
	governance    governance.UseCase
	ledger        ledger.UseCase
	eventRecorder domain.EventRecorder
}

func NewDistributor(cfg *DistributorCfg) *Distributor {
	return &Distributor{
		bank:          cfg.Bank,
		governance:    cfg.Governance,
		ledger:        cfg.Ledger,
		eventRecorder: cfg.EventRecorder,
	}
}

// Payout distributes a settled sale from the market's escrow: fee to the
// treasury, royalty shares to their recipients, proceeds to the seller. All
// three are critical transfers; a rejecting recipient aborts the settlement.
func (d *Distributor) Payout(c bCtx.Ctx, seller domain.Address, breakdown *royalty.Breakdown) error {
	params, err := d.governance.Params(c)
	if err != nil {
		return err
	}
	if domain.IsPositive(breakdown.Fee) {
		if err := d.bank.Transfer(c, domain.MarketAccount, params.Treasury, breakdown.Fee); err != nil {
			return xerrors.Errorf("fee transfer: %w", err)
		}
	}
	for _, payout := range breakdown.Payouts {
		if err := d.bank.Transfer(c, domain.MarketAccount, payout.Recipient, payout.Amount); err != nil {
			return xerrors.Errorf("royalty transfer to %s: %w", payout.Recipient, err)
		}
	}
	if domain.IsPositive(breakdown.SellerProceeds) {
		if err := d.bank.Transfer(c, domain.MarketAccount, seller, breakdown.SellerProceeds); err != nil {
			return xerrors.Errorf("proceeds transfer: %w", err)
		}
	}
	return nil
}

// Refund pushes funds back to a beneficiary best-effort: a rejecting
// recipient gets the amount credited to the withdrawal ledger instead of
// aborting the enclosing operation.
func (d *Distributor) Refund(c bCtx.Ctx, beneficiary domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return nil
	}
	if err := d.bank.Transfer(c, domain.MarketAccount, beneficiary, amount); err != nil {
		c.WithFields(log.Fields{
			"err":         err,
			"beneficiary": beneficiary,
			"amount":      amount.String(),
		}).Warn("refund rejected, crediting ledger")
		if err := d.ledger.Credit(c, beneficiary, amount); err != nil {
			return err
		}
		return d.eventRecorder.Record(c, &domain.Event{
			Type:   domain.EventRefundFailed,
			To:     beneficiary,
			Amount: amount.String(),
		})
	}
	return nil
}
