package domain

import (
	"errors"

	"golang.org/x/xerrors"
)

// Error kinds. Concrete errors wrap exactly one of these so callers can
// classify failures with errors.Is without enumerating every sentinel.
var (
	// ErrValidation marks malformed input, rejected before any state change.
	ErrValidation = errors.New("validation error")
	// ErrAuthorization marks a caller that is not entitled to the operation.
	ErrAuthorization = errors.New("authorization error")
	// ErrState marks an operation against an entity in the wrong lifecycle state.
	ErrState = errors.New("state error")
	// ErrTransferFailed marks an asset or currency transfer that did not complete.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrExternalCall marks a failed capability query; treated as "capability
	// absent" by callers, never propagated as fatal.
	ErrExternalCall = errors.New("external call failed")
)

// validation
var (
	ErrZeroPrice         = xerrors.Errorf("price must be positive: %w", ErrValidation)
	ErrZeroAmount        = xerrors.Errorf("amount must be positive: %w", ErrValidation)
	ErrBadQuantity       = xerrors.Errorf("invalid quantity: %w", ErrValidation)
	ErrBadDeadline       = xerrors.Errorf("deadline must be in the future: %w", ErrValidation)
	ErrBadReservePrice   = xerrors.Errorf("reserve price below minimum bid: %w", ErrValidation)
	ErrBadSplit          = xerrors.Errorf("royalty split shares must sum to 10000 bp: %w", ErrValidation)
	ErrBadParamInput     = xerrors.Errorf("given param is not valid: %w", ErrValidation)
	ErrFeeAboveCeiling   = xerrors.Errorf("fee exceeds policy ceiling: %w", ErrValidation)
	ErrCollectionDenied  = xerrors.Errorf("collection is not allowlisted: %w", ErrValidation)
	ErrInsufficientFunds = xerrors.Errorf("payment below required amount: %w", ErrValidation)
)

// authorization
var (
	ErrNotOwner         = xerrors.Errorf("caller does not own the asset: %w", ErrAuthorization)
	ErrNotApproved      = xerrors.Errorf("market lacks transfer approval: %w", ErrAuthorization)
	ErrNotSeller        = xerrors.Errorf("caller is not the seller: %w", ErrAuthorization)
	ErrNotOfferor       = xerrors.Errorf("caller is not the offeror: %w", ErrAuthorization)
	ErrNotAllowedBuyer  = xerrors.Errorf("listing reserved for another buyer: %w", ErrAuthorization)
	ErrNotAllowedBidder = xerrors.Errorf("auction reserved for another bidder: %w", ErrAuthorization)
	ErrNotEntitled      = xerrors.Errorf("caller is neither holder nor escrow depositor: %w", ErrAuthorization)
	ErrSellerBid        = xerrors.Errorf("seller cannot bid on own auction: %w", ErrAuthorization)
	ErrNotAdmin         = xerrors.Errorf("caller is not an admin: %w", ErrAuthorization)
)

// state
var (
	ErrNotFound        = xerrors.Errorf("entry not found: %w", ErrState)
	ErrNotActive       = xerrors.Errorf("entry is not active: %w", ErrState)
	ErrAlreadyExists   = xerrors.Errorf("entry already active: %w", ErrState)
	ErrExpired         = xerrors.Errorf("entry has expired: %w", ErrState)
	ErrAuctionLive     = xerrors.Errorf("auction has not ended yet: %w", ErrState)
	ErrAuctionHasBids  = xerrors.Errorf("auction already has bids: %w", ErrState)
	ErrBidTooLow       = xerrors.Errorf("bid below required minimum: %w", ErrState)
	ErrMarketPaused    = xerrors.Errorf("market is paused: %w", ErrState)
	ErrNothingToClaim  = xerrors.Errorf("nothing to withdraw: %w", ErrState)
	ErrReentrantCall   = xerrors.Errorf("reentrant settlement call: %w", ErrState)
	ErrTimelockPending = xerrors.Errorf("timelock delay has not elapsed: %w", ErrState)
	ErrProposalClosed  = xerrors.Errorf("proposal already executed or cancelled: %w", ErrState)
	ErrOfferDepleted   = xerrors.Errorf("collection offer quantity exhausted: %w", ErrState)
)

func IsValidationError(err error) bool { return errors.Is(err, ErrValidation) }

func IsAuthorizationError(err error) bool { return errors.Is(err, ErrAuthorization) }

func IsStateError(err error) bool { return errors.Is(err, ErrState) }

func IsTransferFailure(err error) bool { return errors.Is(err, ErrTransferFailed) }

func IsExternalCallFailure(err error) bool { return errors.Is(err, ErrExternalCall) }
