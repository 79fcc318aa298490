package repository

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/escrow"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketEscrow = []byte("escrow")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) escrow.Repo {
	return &impl{db: db}
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AssetId) (*escrow.Record, error) {
	var res escrow.Record
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketEscrow, []byte(id.String()), &res)
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

func (im *impl) Upsert(c ctx.Ctx, r *escrow.Record) error {
	r.Collection = r.Collection.ToLower()
	r.Depositor = r.Depositor.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketEscrow, []byte(r.AssetId().String()), r)
	})
}

func (im *impl) Delete(c ctx.Ctx, id domain.AssetId) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.Delete(bucketEscrow, []byte(id.String()))
	})
}
