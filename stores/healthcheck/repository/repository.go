package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	hcdomain "github.com/nifty-xyz/gomarket/domain/healthcheck"
	"github.com/nifty-xyz/gomarket/service/statedb"
)

type impl struct {
	db        *statedb.DB
	mgoClient *mongo.Client
}

// New builds the healthcheck repo. mgoClient may be nil when the event
// mirror is not configured.
func New(db *statedb.DB, mgoClient *mongo.Client) hcdomain.HealthCheckRepo {
	return &impl{
		db:        db,
		mgoClient: mgoClient,
	}
}

func (im *impl) PingDB(context ctx.Ctx) error {
	if err := im.db.View(func(tx *statedb.Tx) error { return nil }); err != nil {
		context.WithFields(log.Fields{"err": err}).Error("state db ping failed")
		return err
	}

	if im.mgoClient != nil {
		c, cancel := ctx.WithTimeout(context, 2*time.Second)
		defer cancel()
		if err := im.mgoClient.Ping(c, readpref.Primary()); err != nil {
			context.WithFields(log.Fields{"err": err}).Error("mongo ping failed")
			return err
		}
	}

	return nil
}
