package domain

import (
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
)

type EventType string

const (
	EventListingCreated   EventType = "listing_created"
	EventListingCancelled EventType = "listing_cancelled"
	EventListingSold      EventType = "listing_sold"

	EventAuctionCreated       EventType = "auction_created"
	EventAuctionBid           EventType = "auction_bid"
	EventAuctionExtended      EventType = "auction_extended"
	EventAuctionCancelled     EventType = "auction_cancelled"
	EventAuctionEnded         EventType = "auction_ended"
	EventAuctionReserveNotMet EventType = "auction_reserve_not_met"

	EventOfferMade               EventType = "offer_made"
	EventOfferCancelled          EventType = "offer_cancelled"
	EventOfferAccepted           EventType = "offer_accepted"
	EventCollectionOfferMade     EventType = "collection_offer_made"
	EventCollectionOfferCanceled EventType = "collection_offer_cancelled"
	EventCollectionOfferAccepted EventType = "collection_offer_accepted"

	EventEscrowDeposited EventType = "escrow_deposited"
	EventEscrowReleased  EventType = "escrow_released"

	EventWithdrawal   EventType = "withdrawal"
	EventRefundFailed EventType = "refund_failed"

	EventParamsUpdated     EventType = "params_updated"
	EventCollectionAllowed EventType = "collection_allowed"
	EventCollectionDenied  EventType = "collection_denied"
	EventMarketPaused      EventType = "market_paused"
	EventMarketUnpaused    EventType = "market_unpaused"
	EventProposalQueued    EventType = "proposal_queued"
	EventProposalExecuted  EventType = "proposal_executed"
	EventProposalCancelled EventType = "proposal_cancelled"
)

// Event is the structured record every state-changing operation emits. Amounts
// are decimal strings so the record survives any transport unchanged. The full
// event stream is sufficient to reconstruct market history without replaying
// state.
type Event struct {
	Id         string    `json:"id" bson:"id"`
	Type       EventType `json:"type" bson:"type"`
	Collection Address   `json:"collection,omitempty" bson:"collection,omitempty"`
	TokenId    TokenId   `json:"tokenId,omitempty" bson:"tokenId,omitempty"`
	From       Address   `json:"from,omitempty" bson:"from,omitempty"`
	To         Address   `json:"to,omitempty" bson:"to,omitempty"`
	Amount     string    `json:"amount,omitempty" bson:"amount,omitempty"`
	Fee        string    `json:"fee,omitempty" bson:"fee,omitempty"`
	Royalty    string    `json:"royalty,omitempty" bson:"royalty,omitempty"`
	Quantity   uint64    `json:"quantity,omitempty" bson:"quantity,omitempty"`
	Time       time.Time `json:"time" bson:"time"`
}

type EventFindAllOptions struct {
	Collection *Address
	TokenId    *TokenId
	Types      []EventType
	Offset     int
	Limit      int
	SortDir    SortDir
}

type EventFindAllOptionsFunc func(*EventFindAllOptions) error

func GetEventFindAllOptions(opts ...EventFindAllOptionsFunc) (EventFindAllOptions, error) {
	res := EventFindAllOptions{SortDir: SortDirAsc}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func EventWithCollection(collection Address) EventFindAllOptionsFunc {
	return func(o *EventFindAllOptions) error {
		collection = collection.ToLower()
		o.Collection = &collection
		return nil
	}
}

func EventWithTokenId(tokenId TokenId) EventFindAllOptionsFunc {
	return func(o *EventFindAllOptions) error {
		o.TokenId = &tokenId
		return nil
	}
}

func EventWithTypes(types ...EventType) EventFindAllOptionsFunc {
	return func(o *EventFindAllOptions) error {
		o.Types = types
		return nil
	}
}

func EventWithPagination(offset, limit int) EventFindAllOptionsFunc {
	return func(o *EventFindAllOptions) error {
		o.Offset = offset
		o.Limit = limit
		return nil
	}
}

// EventRecorder appends events inside the active operation transaction so an
// aborted operation leaves no trace of its events.
type EventRecorder interface {
	Record(ctx ctx.Ctx, ev *Event) error
}

// EventRepo is the authoritative event log.
type EventRepo interface {
	Append(ctx ctx.Ctx, ev *Event) error
	FindAll(ctx ctx.Ctx, opts ...EventFindAllOptionsFunc) ([]*Event, error)
}

// EventSink receives events after the operation that produced them committed.
type EventSink interface {
	Publish(ctx ctx.Ctx, evs []*Event)
}
