package repository

import (
	"encoding/json"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/auction"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketAuctions = []byte("auctions")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) auction.Repo {
	return &impl{db: db}
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AssetId) (*auction.Auction, error) {
	var res auction.Auction
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketAuctions, []byte(id.String()), &res)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}
	var res []*auction.Auction
	err = im.db.View(func(tx *statedb.Tx) error {
		return tx.ForEach(bucketAuctions, func(k, v []byte) error {
			var a auction.Auction
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if opts.ActiveOnly && !a.Active {
				return nil
			}
			if opts.Seller != nil && !a.Seller.Equals(*opts.Seller) {
				return nil
			}
			if opts.Collection != nil && !a.Collection.Equals(*opts.Collection) {
				return nil
			}
			res = append(res, &a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) Upsert(c ctx.Ctx, a *auction.Auction) error {
	a.Collection = a.Collection.ToLower()
	a.Seller = a.Seller.ToLower()
	a.HighestBidder = a.HighestBidder.ToLower()
	a.AllowedBidder = a.AllowedBidder.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketAuctions, []byte(a.AssetId().String()), a)
	})
}
