package usecase

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/assets"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

type CalculatorCfg struct {
	DB             *statedb.DB
	SplitRepo      royalty.SplitRepo
	CollectionRepo collection.Repo
	Governance     governance.UseCase
	AssetRegistry  assets.Registry
}

type impl struct {
	db             *statedb.DB
	splitRepo      royalty.SplitRepo
	collectionRepo collection.Repo
	governance     governance.UseCase
	assetRegistry  assets.Registry
}

func New(cfg *CalculatorCfg) royalty.Calculator {
	return &impl{
		db:             cfg.DB,
		splitRepo:      cfg.SplitRepo,
		collectionRepo: cfg.CollectionRepo,
		governance:     cfg.Governance,
		assetRegistry:  cfg.AssetRegistry,
	}
}

func (im *impl) GetSplit(c bCtx.Ctx, id domain.AssetId) (*royalty.Split, error) {
	return im.splitRepo.FindOne(c, id)
}

func (im *impl) SetSplit(c bCtx.Ctx, caller domain.Address, s *royalty.Split) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		isAdmin, err := im.governance.IsAdmin(c, caller)
		if err != nil {
			return err
		}
		if !isAdmin {
			col, err := im.collectionRepo.FindOne(c, s.Collection)
			if err != nil {
				return err
			}
			if !col.Creator.Equals(caller) {
				return xerrors.Errorf("caller %s is neither creator nor admin: %w", caller, domain.ErrNotEntitled)
			}
		}
		return im.splitRepo.Upsert(c, s)
	})
}

func (im *impl) ComputeSplit(c bCtx.Ctx, id domain.AssetId, salePrice *big.Int) (*royalty.Breakdown, error) {
	if !domain.IsPositive(salePrice) {
		return nil, domain.ErrZeroPrice
	}
	params, err := im.governance.Params(c)
	if err != nil {
		return nil, err
	}
	fee := domain.Bps(salePrice, params.FeeBps)

	royaltyAmount, royaltyRecipient := im.queryRoyalty(c, id, salePrice, params)

	// fee takes precedence: the royalty can never eat into it
	remainder := new(big.Int).Sub(salePrice, fee)
	if royaltyAmount.Cmp(remainder) > 0 {
		royaltyAmount = remainder
	}

	breakdown := &royalty.Breakdown{
		Fee:            fee,
		Royalty:        royaltyAmount,
		SellerProceeds: new(big.Int).Sub(remainder, royaltyAmount),
	}
	if !domain.IsPositive(royaltyAmount) {
		breakdown.Royalty = new(big.Int)
		return breakdown, nil
	}

	split, err := im.splitRepo.FindOne(c, id)
	if xerrors.Is(err, domain.ErrNotFound) {
		breakdown.Payouts = []royalty.Payout{{Recipient: royaltyRecipient, Amount: royaltyAmount}}
		return breakdown, nil
	} else if err != nil {
		return nil, err
	}
	for _, share := range split.Shares {
		amount := domain.Bps(royaltyAmount, share.Bps)
		if !domain.IsPositive(amount) {
			continue
		}
		breakdown.Payouts = append(breakdown.Payouts, royalty.Payout{
			Recipient: share.Recipient,
			Amount:    amount,
		})
	}
	return breakdown, nil
}

// queryRoyalty asks the collection for its royalty and clamps the answer to
// the policy cap. A failing or absent capability means zero royalty.
func (im *impl) queryRoyalty(c bCtx.Ctx, id domain.AssetId, salePrice *big.Int, params *governance.Params) (*big.Int, domain.Address) {
	recipient, amount, err := im.assetRegistry.RoyaltyInfo(c, id.Collection, id.TokenId, salePrice)
	if err != nil {
		c.WithFields(log.Fields{
			"err":        err,
			"collection": id.Collection,
			"tokenId":    id.TokenId,
		}).Warn("royalty query failed, treating as zero")
		return new(big.Int), domain.EmptyAddress
	}
	if !domain.IsPositive(amount) || recipient.IsEmpty() {
		return new(big.Int), domain.EmptyAddress
	}
	cap := domain.Bps(salePrice, params.RoyaltyCapBps)
	if amount.Cmp(cap) > 0 {
		amount = cap
	}
	return new(big.Int).Set(amount), recipient.ToLower()
}
