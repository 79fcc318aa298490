package repository

import (
	"encoding/json"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

var (
	bucketParams    = []byte("params")
	bucketProposals = []byte("proposals")
	keyParams       = []byte("params")
)

type impl struct {
	db       *statedb.DB
	defaults governance.Params
}

// New creates the governance repo. defaults seed the params entry the first
// time the market starts.
func New(db *statedb.DB, defaults governance.Params) governance.Repo {
	return &impl{db: db, defaults: defaults}
}

func (im *impl) GetParams(c ctx.Ctx) (*governance.Params, error) {
	res := im.defaults
	err := im.db.View(func(tx *statedb.Tx) error {
		_, err := tx.GetJSON(bucketParams, keyParams, &res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (im *impl) SetParams(c ctx.Ctx, p *governance.Params) error {
	p.Admin = p.Admin.ToLower()
	p.Treasury = p.Treasury.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketParams, keyParams, p)
	})
}

func (im *impl) FindProposal(c ctx.Ctx, id uint64) (*governance.Proposal, error) {
	var res governance.Proposal
	err := im.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(bucketProposals, statedb.SeqKey(id), &res)
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

func (im *impl) FindAllProposals(c ctx.Ctx) ([]*governance.Proposal, error) {
	var res []*governance.Proposal
	err := im.db.View(func(tx *statedb.Tx) error {
		return tx.ForEach(bucketProposals, func(k, v []byte) error {
			var p governance.Proposal
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			res = append(res, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) UpsertProposal(c ctx.Ctx, p *governance.Proposal) error {
	p.Proposer = p.Proposer.ToLower()
	return im.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(bucketProposals, statedb.SeqKey(p.Id), p)
	})
}

func (im *impl) NextProposalId(c ctx.Ctx) (uint64, error) {
	var id uint64
	err := im.db.Update(func(tx *statedb.Tx) error {
		var err error
		id, err = tx.NextSequence(bucketProposals)
		return err
	})
	return id, err
}
