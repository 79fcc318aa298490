package repository

import (
	"encoding/json"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/listing"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketListings = []byte("listings")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) listing.Repo {
	return &impl{db: db}
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AssetId) (*listing.Listing, error) {
	var res listing.Listing
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketListings, []byte(id.String()), &res)
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

func (im *impl) FindAll(c ctx.Ctx, optFns ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}
	var res []*listing.Listing
	err = im.db.View(func(tx *statedb.Tx) error {
		return tx.ForEach(bucketListings, func(k, v []byte) error {
			var l listing.Listing
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			if opts.ActiveOnly && !l.Active {
				return nil
			}
			if opts.Seller != nil && !l.Seller.Equals(*opts.Seller) {
				return nil
			}
			if opts.Collection != nil && !l.Collection.Equals(*opts.Collection) {
				return nil
			}
			res = append(res, &l)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) Upsert(c ctx.Ctx, l *listing.Listing) error {
	l.Collection = l.Collection.ToLower()
	l.Seller = l.Seller.ToLower()
	l.AllowedBuyer = l.AllowedBuyer.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketListings, []byte(l.AssetId().String()), l)
	})
}
