package repository

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/royalty"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketSplits = []byte("royalty_splits")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) royalty.SplitRepo {
	return &impl{db: db}
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AssetId) (*royalty.Split, error) {
	var res royalty.Split
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketSplits, []byte(id.String()), &res)
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

func (im *impl) Upsert(c ctx.Ctx, s *royalty.Split) error {
	s.Collection = s.Collection.ToLower()
	for i := range s.Shares {
		s.Shares[i].Recipient = s.Shares[i].Recipient.ToLower()
	}
	return im.db.Update(func(tx *statedb.Tx) error {
		id := domain.AssetId{Collection: s.Collection, TokenId: s.TokenId}
		return tx.PutJSON(bucketSplits, []byte(id.String()), s)
	})
}
