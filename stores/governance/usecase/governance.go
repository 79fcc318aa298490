package usecase

import (
	"time"

	"github.com/benbjohnson/clock"
	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/collection"
	"github.com/nifty-xyz/gomarket/domain/governance"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

const DefaultTimelockDelay = 48 * time.Hour

type GovernanceUseCaseCfg struct {
	DB             *statedb.DB
	GovernanceRepo governance.Repo
	CollectionRepo collection.Repo
	EventRecorder  domain.EventRecorder
	Clock          clock.Clock
	TimelockDelay  time.Duration
}

type impl struct {
	db             *statedb.DB
	governanceRepo governance.Repo
	collectionRepo collection.Repo
	eventRecorder  domain.EventRecorder
	clock          clock.Clock
	timelockDelay  time.Duration
}

func New(cfg *GovernanceUseCaseCfg) governance.UseCase {
	im := &impl{
		db:             cfg.DB,
		governanceRepo: cfg.GovernanceRepo,
		collectionRepo: cfg.CollectionRepo,
		eventRecorder:  cfg.EventRecorder,
		clock:          cfg.Clock,
		timelockDelay:  cfg.TimelockDelay,
	}
	if im.clock == nil {
		im.clock = clock.New()
	}
	if im.timelockDelay <= 0 {
		im.timelockDelay = DefaultTimelockDelay
	}
	return im
}

func (im *impl) Params(c bCtx.Ctx) (*governance.Params, error) {
	return im.governanceRepo.GetParams(c)
}

func (im *impl) IsAdmin(c bCtx.Ctx, caller domain.Address) (bool, error) {
	params, err := im.governanceRepo.GetParams(c)
	if err != nil {
		return false, err
	}
	return params.Admin.Equals(caller), nil
}

func (im *impl) RequireNotPaused(c bCtx.Ctx) error {
	params, err := im.governanceRepo.GetParams(c)
	if err != nil {
		return err
	}
	if params.Paused {
		return domain.ErrMarketPaused
	}
	return nil
}

func (im *impl) requireAdmin(c bCtx.Ctx, caller domain.Address) error {
	isAdmin, err := im.IsAdmin(c, caller)
	if err != nil {
		return err
	}
	if !isAdmin {
		return domain.ErrNotAdmin
	}
	return nil
}

func (im *impl) Apply(c bCtx.Ctx, caller domain.Address, change governance.Change) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		if err := im.requireAdmin(c, caller); err != nil {
			return err
		}
		return im.applyChange(c, change)
	})
}

func (im *impl) applyChange(c bCtx.Ctx, change governance.Change) error {
	params, err := im.governanceRepo.GetParams(c)
	if err != nil {
		return err
	}
	ev := &domain.Event{Type: domain.EventParamsUpdated}
	switch change.Kind {
	case governance.ChangeSetFee:
		// policy ceiling binds every caller, admin included
		if change.Bps < 0 || change.Bps > governance.MaxFeeBps {
			return domain.ErrFeeAboveCeiling
		}
		params.FeeBps = change.Bps
	case governance.ChangeSetRoyaltyCap:
		if change.Bps < 0 || change.Bps > governance.MaxRoyaltyBps {
			return domain.ErrBadParamInput
		}
		params.RoyaltyCapBps = change.Bps
	case governance.ChangeSetTreasury:
		if change.Address.IsEmpty() {
			return domain.ErrBadParamInput
		}
		params.Treasury = change.Address
	case governance.ChangeSetAdmin:
		if change.Address.IsEmpty() {
			return domain.ErrBadParamInput
		}
		params.Admin = change.Address
	case governance.ChangePause:
		params.Paused = true
		ev.Type = domain.EventMarketPaused
	case governance.ChangeUnpause:
		params.Paused = false
		ev.Type = domain.EventMarketUnpaused
	case governance.ChangeAllowCollection, governance.ChangeDenyCollection:
		col, err := im.collectionRepo.FindOne(c, change.Address)
		if err != nil {
			return err
		}
		col.Allowed = change.Kind == governance.ChangeAllowCollection
		if err := im.collectionRepo.Upsert(c, col); err != nil {
			return err
		}
		ev.Type = domain.EventCollectionAllowed
		if !col.Allowed {
			ev.Type = domain.EventCollectionDenied
		}
		ev.Collection = col.Address
		return im.eventRecorder.Record(c, ev)
	default:
		return xerrors.Errorf("unknown change kind %q: %w", change.Kind, domain.ErrBadParamInput)
	}
	if err := im.governanceRepo.SetParams(c, params); err != nil {
		return err
	}
	return im.eventRecorder.Record(c, ev)
}

func (im *impl) Propose(c bCtx.Ctx, caller domain.Address, change governance.Change) (*governance.Proposal, error) {
	var proposal *governance.Proposal
	err := im.db.Update(func(tx *statedb.Tx) error {
		if err := im.requireAdmin(c, caller); err != nil {
			return err
		}
		id, err := im.governanceRepo.NextProposalId(c)
		if err != nil {
			return err
		}
		now := im.clock.Now().UTC()
		proposal = &governance.Proposal{
			Id:       id,
			Change:   change,
			Proposer: caller,
			Eta:      now.Add(im.timelockDelay),
			QueuedAt: now,
		}
		if err := im.governanceRepo.UpsertProposal(c, proposal); err != nil {
			return err
		}
		return im.eventRecorder.Record(c, &domain.Event{
			Type: domain.EventProposalQueued,
			From: caller,
		})
	})
	if err != nil {
		c.WithFields(log.Fields{
			"err":    err,
			"caller": caller,
		}).Error("failed to queue proposal")
		return nil, err
	}
	return proposal, nil
}

func (im *impl) Execute(c bCtx.Ctx, caller domain.Address, id uint64) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		proposal, err := im.governanceRepo.FindProposal(c, id)
		if err != nil {
			return err
		}
		if proposal.Closed() {
			return domain.ErrProposalClosed
		}
		if im.clock.Now().Before(proposal.Eta) {
			return domain.ErrTimelockPending
		}
		if err := im.applyChange(c, proposal.Change); err != nil {
			return err
		}
		proposal.Executed = true
		if err := im.governanceRepo.UpsertProposal(c, proposal); err != nil {
			return err
		}
		return im.eventRecorder.Record(c, &domain.Event{
			Type: domain.EventProposalExecuted,
			From: caller,
		})
	})
}

func (im *impl) CancelProposal(c bCtx.Ctx, caller domain.Address, id uint64) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		if err := im.requireAdmin(c, caller); err != nil {
			return err
		}
		proposal, err := im.governanceRepo.FindProposal(c, id)
		if err != nil {
			return err
		}
		if proposal.Closed() {
			return domain.ErrProposalClosed
		}
		proposal.Cancelled = true
		if err := im.governanceRepo.UpsertProposal(c, proposal); err != nil {
			return err
		}
		return im.eventRecorder.Record(c, &domain.Event{
			Type: domain.EventProposalCancelled,
			From: caller,
		})
	})
}

func (im *impl) Proposals(c bCtx.Ctx) ([]*governance.Proposal, error) {
	return im.governanceRepo.FindAllProposals(c)
}
