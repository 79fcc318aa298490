package repository

import (
	"encoding/json"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketCollections = []byte("collections")

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) collection.Repo {
	return &impl{db: db}
}

func (im *impl) FindOne(c ctx.Ctx, addr domain.Address) (*collection.Collection, error) {
	var res collection.Collection
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketCollections, []byte(addr.ToLowerStr()), &res)
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

func (im *impl) FindAll(c ctx.Ctx, optFns ...collection.FindAllOptionsFunc) ([]*collection.Collection, error) {
	opts, err := collection.GetFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}
	var res []*collection.Collection
	err = im.db.View(func(tx *statedb.Tx) error {
		return tx.ForEach(bucketCollections, func(k, v []byte) error {
			var col collection.Collection
			if err := json.Unmarshal(v, &col); err != nil {
				return err
			}
			if opts.AllowedOnly && !col.Allowed {
				return nil
			}
			if opts.Creator != nil && !col.Creator.Equals(*opts.Creator) {
				return nil
			}
			res = append(res, &col)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) Upsert(c ctx.Ctx, col *collection.Collection) error {
	col.Address = col.Address.ToLower()
	col.Creator = col.Creator.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketCollections, []byte(col.Address.ToLowerStr()), col)
	})
}
