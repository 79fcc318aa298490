package governance

import (
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
)

const (
	// MaxFeeBps is the policy ceiling on the marketplace fee; no caller,
	// admin included, can set a fee above it.
	MaxFeeBps = int64(1000)
	// MaxRoyaltyBps caps the royalty deducted from any sale regardless of
	// what the collection contract reports, bounding seller loss from a
	// misbehaving collection.
	MaxRoyaltyBps = int64(2500)

	DefaultFeeBps = int64(250)
)

// Params is the governed market configuration.
type Params struct {
	Admin         domain.Address `json:"admin"`
	Treasury      domain.Address `json:"treasury"`
	FeeBps        int64          `json:"feeBps"`
	RoyaltyCapBps int64          `json:"royaltyCapBps"`
	Paused        bool           `json:"paused"`
}

type ChangeKind string

const (
	ChangeSetFee          ChangeKind = "set_fee"
	ChangeSetTreasury     ChangeKind = "set_treasury"
	ChangeSetRoyaltyCap   ChangeKind = "set_royalty_cap"
	ChangeAllowCollection ChangeKind = "allow_collection"
	ChangeDenyCollection  ChangeKind = "deny_collection"
	ChangePause           ChangeKind = "pause"
	ChangeUnpause         ChangeKind = "unpause"
	ChangeSetAdmin        ChangeKind = "set_admin"
)

// Change is a single parameter mutation, either applied directly by the
// admin or queued through the timelock.
type Change struct {
	Kind    ChangeKind     `json:"kind"`
	Bps     int64          `json:"bps,omitempty"`
	Address domain.Address `json:"address,omitempty"`
}

// Proposal is a timelocked parameter change. Execution fails before the
// delay elapses, after execution, or after cancellation.
type Proposal struct {
	Id        uint64         `json:"id"`
	Change    Change         `json:"change"`
	Proposer  domain.Address `json:"proposer"`
	Eta       time.Time      `json:"eta"`
	Executed  bool           `json:"executed"`
	Cancelled bool           `json:"cancelled"`
	QueuedAt  time.Time      `json:"queuedAt"`
}

func (p *Proposal) Closed() bool {
	return p.Executed || p.Cancelled
}

type Repo interface {
	GetParams(ctx ctx.Ctx) (*Params, error)
	SetParams(ctx ctx.Ctx, p *Params) error
	FindProposal(ctx ctx.Ctx, id uint64) (*Proposal, error)
	FindAllProposals(ctx ctx.Ctx) ([]*Proposal, error)
	UpsertProposal(ctx ctx.Ctx, p *Proposal) error
	NextProposalId(ctx ctx.Ctx) (uint64, error)
}

type UseCase interface {
	Params(ctx ctx.Ctx) (*Params, error)
	// Apply performs a parameter change immediately. Admin only; fee changes
	// above MaxFeeBps are rejected regardless of caller.
	Apply(ctx ctx.Ctx, caller domain.Address, change Change) error

	// Propose queues a change for execution no earlier than now+delay.
	Propose(ctx ctx.Ctx, caller domain.Address, change Change) (*Proposal, error)
	// Execute applies a queued change once its delay elapsed. Anyone may
	// execute.
	Execute(ctx ctx.Ctx, caller domain.Address, id uint64) error
	// CancelProposal voids a queued change. Admin only.
	CancelProposal(ctx ctx.Ctx, caller domain.Address, id uint64) error
	Proposals(ctx ctx.Ctx) ([]*Proposal, error)

	// RequireNotPaused fails with ErrMarketPaused while trading is halted.
	RequireNotPaused(ctx ctx.Ctx) error
	// IsAdmin reports whether caller is the market admin.
	IsAdmin(ctx ctx.Ctx, caller domain.Address) (bool, error)
}
