package usecase

import (
	"time"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/viney-shih/goroutines"
)

// Indexer fans committed events out to a history repo (typically the mongo
// mirror) on a worker pool. History writes are off the settlement path; a
// failed write is logged and the bbolt log stays authoritative.
type Indexer struct {
	history    domain.EventRepo
	workerPool *goroutines.Pool
}

func NewIndexer(history domain.EventRepo) *Indexer {
	return &Indexer{
		history:    history,
		workerPool: goroutines.NewPool(8, goroutines.WithTaskQueueLength(1024)),
	}
}

func (ix *Indexer) Publish(c ctx.Ctx, evs []*domain.Event) {
	for _, ev := range evs {
		ev := ev
		err := ix.workerPool.ScheduleWithTimeout(3*time.Second, func() {
			if err := ix.history.Append(c, ev); err != nil {
				c.WithFields(log.Fields{
					"err":     err,
					"eventId": ev.Id,
				}).Error("failed to index market event")
			}
		})
		if err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"eventId": ev.Id,
			}).Error("failed to ScheduleWithTimeout")
		}
	}
}

func (ix *Indexer) Release() {
	ix.workerPool.Release()
}
