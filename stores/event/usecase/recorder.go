package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

type RecorderCfg struct {
	DB        *statedb.DB
	EventRepo domain.EventRepo
	Sink      domain.EventSink // optional
}

// recorder appends events to the authoritative log inside the operation
// transaction and hands them to the sink only after the operation commits, so
// downstream consumers never see events from rolled-back operations.
type recorder struct {
	db        *statedb.DB
	eventRepo domain.EventRepo
	sink      domain.EventSink
}

func NewRecorder(cfg *RecorderCfg) domain.EventRecorder {
	return &recorder{
		db:        cfg.DB,
		eventRepo: cfg.EventRepo,
		sink:      cfg.Sink,
	}
}

func (r *recorder) Record(c ctx.Ctx, ev *domain.Event) error {
	if ev.Id == "" {
		ev.Id = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	ev.Collection = ev.Collection.ToLower()
	ev.From = ev.From.ToLower()
	ev.To = ev.To.ToLower()
	return r.db.Update(func(tx *statedb.Tx) error {
		if err := r.eventRepo.Append(c, ev); err != nil {
			return err
		}
		if r.sink != nil {
			published := ev
			tx.OnCommit(func() {
				r.sink.Publish(c, []*domain.Event{published})
			})
		}
		return nil
	})
}
