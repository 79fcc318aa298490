package mongo

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "market_events"

// impl mirrors the event log into mongo for the read API. It is an indexer
// sink fed after operations commit, never part of settlement itself, so a
// mongo outage cannot fail a sale.
type impl struct {
	col *mongo.Collection
}

func New(db *mongo.Database) domain.EventRepo {
	return &impl{col: db.Collection(collectionName)}
}

func (im *impl) Append(c ctx.Ctx, ev *domain.Event) error {
	if _, err := im.col.InsertOne(c, ev); err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"eventId": ev.Id,
		}).Error("failed to insert market event")
		return err
	}
	return nil
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...domain.EventFindAllOptionsFunc) ([]*domain.Event, error) {
	opts, err := domain.GetEventFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}
	query := bson.M{}
	if opts.Collection != nil {
		query["collection"] = opts.Collection.ToLower()
	}
	if opts.TokenId != nil {
		query["tokenId"] = *opts.TokenId
	}
	if len(opts.Types) > 0 {
		query["type"] = bson.M{"$in": opts.Types}
	}
	findOpts := options.Find().SetSort(bson.M{"time": int(opts.SortDir)})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	cursor, err := im.col.Find(c, query, findOpts)
	if err != nil {
		c.WithFields(log.Fields{
			"err": err,
		}).Error("failed to find market events")
		return nil, err
	}
	var res []*domain.Event
	if err := cursor.All(c, &res); err != nil {
		return nil, err
	}
	return res, nil
}
