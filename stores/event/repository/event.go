package repository

import (
	"encoding/json"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var bucketEvents = []byte("events")

// impl is the authoritative bbolt event log. Appends happen inside the
// operation transaction, so events of an aborted operation never surface.
type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) domain.EventRepo {
	return &impl{db: db}
}

func (im *impl) Append(c ctx.Ctx, ev *domain.Event) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		seq, err := tx.NextSequence(bucketEvents)
		if err != nil {
			return err
		}
		return tx.PutJSON(bucketEvents, statedb.SeqKey(seq), ev)
	})
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...domain.EventFindAllOptionsFunc) ([]*domain.Event, error) {
	opts, err := domain.GetEventFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}
	var all []*domain.Event
	err = im.db.View(func(tx *statedb.Tx) error {
		return tx.ForEach(bucketEvents, func(k, v []byte) error {
			var ev domain.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if opts.Collection != nil && !ev.Collection.Equals(*opts.Collection) {
				return nil
			}
			if opts.TokenId != nil && ev.TokenId != *opts.TokenId {
				return nil
			}
			if len(opts.Types) > 0 && !containsType(opts.Types, ev.Type) {
				return nil
			}
			all = append(all, &ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if opts.SortDir == domain.SortDirDesc {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return nil, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func containsType(types []domain.EventType, t domain.EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
