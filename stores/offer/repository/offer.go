package repository

import (
	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/domain/offer"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

var (
	bucketOffers           = []byte("offers")
	bucketCollectionOffers = []byte("collection_offers")
)

// offers for one asset are stored as a single sequence under the asset key;
// append and swap-remove keep the storage in step with the index-based
// operations the engine exposes

type impl struct {
	db *statedb.DB
}

func New(db *statedb.DB) offer.Repo {
	return &impl{db: db}
}

func (im *impl) load(tx *statedb.Tx, id domain.AssetId) ([]*offer.Offer, error) {
	var seq []*offer.Offer
	if _, err := tx.GetJSON(bucketOffers, []byte(id.String()), &seq); err != nil {
		return nil, err
	}
	return seq, nil
}

func (im *impl) store(tx *statedb.Tx, id domain.AssetId, seq []*offer.Offer) error {
	if len(seq) == 0 {
		return tx.Delete(bucketOffers, []byte(id.String()))
	}
	return tx.PutJSON(bucketOffers, []byte(id.String()), seq)
}

func (im *impl) FindByAsset(c ctx.Ctx, id domain.AssetId) ([]*offer.Offer, error) {
	var seq []*offer.Offer
	err := im.db.View(func(tx *statedb.Tx) error {
		var err error
		seq, err = im.load(tx, id.ToLower())
		return err
	})
	return seq, err
}

func (im *impl) Append(c ctx.Ctx, o *offer.Offer) (int, error) {
	o.Collection = o.Collection.ToLower()
	o.Offeror = o.Offeror.ToLower()
	index := 0
	err := im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, o.AssetId())
		if err != nil {
			return err
		}
		index = len(seq)
		return im.store(tx, o.AssetId(), append(seq, o))
	})
	return index, err
}

func (im *impl) Update(c ctx.Ctx, id domain.AssetId, index int, o *offer.Offer) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, id.ToLower())
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seq) {
			return xerrors.Errorf("offer index %d out of range: %w", index, domain.ErrNotFound)
		}
		seq[index] = o
		return im.store(tx, id.ToLower(), seq)
	})
}

func (im *impl) SwapRemove(c ctx.Ctx, id domain.AssetId, index int) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, id.ToLower())
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seq) {
			return xerrors.Errorf("offer index %d out of range: %w", index, domain.ErrNotFound)
		}
		seq[index] = seq[len(seq)-1]
		return im.store(tx, id.ToLower(), seq[:len(seq)-1])
	})
}

type collectionImpl struct {
	db *statedb.DB
}

func NewCollection(db *statedb.DB) offer.CollectionRepo {
	return &collectionImpl{db: db}
}

func (im *collectionImpl) load(tx *statedb.Tx, collection domain.Address) ([]*offer.CollectionOffer, error) {
	var seq []*offer.CollectionOffer
	if _, err := tx.GetJSON(bucketCollectionOffers, []byte(collection.ToLowerStr()), &seq); err != nil {
		return nil, err
	}
	return seq, nil
}

func (im *collectionImpl) store(tx *statedb.Tx, collection domain.Address, seq []*offer.CollectionOffer) error {
	if len(seq) == 0 {
		return tx.Delete(bucketCollectionOffers, []byte(collection.ToLowerStr()))
	}
	return tx.PutJSON(bucketCollectionOffers, []byte(collection.ToLowerStr()), seq)
}

func (im *collectionImpl) FindByCollection(c ctx.Ctx, collection domain.Address) ([]*offer.CollectionOffer, error) {
	var seq []*offer.CollectionOffer
	err := im.db.View(func(tx *statedb.Tx) error {
		var err error
		seq, err = im.load(tx, collection)
		return err
	})
	return seq, err
}

func (im *collectionImpl) Append(c ctx.Ctx, o *offer.CollectionOffer) (int, error) {
	o.Collection = o.Collection.ToLower()
	o.Offeror = o.Offeror.ToLower()
	index := 0
	err := im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, o.Collection)
		if err != nil {
			return err
		}
		index = len(seq)
		return im.store(tx, o.Collection, append(seq, o))
	})
	return index, err
}

func (im *collectionImpl) Update(c ctx.Ctx, collection domain.Address, index int, o *offer.CollectionOffer) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, collection)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seq) {
			return xerrors.Errorf("collection offer index %d out of range: %w", index, domain.ErrNotFound)
		}
		seq[index] = o
		return im.store(tx, collection, seq)
	})
}

func (im *collectionImpl) SwapRemove(c ctx.Ctx, collection domain.Address, index int) error {
	return im.db.Update(func(tx *statedb.Tx) error {
		seq, err := im.load(tx, collection)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seq) {
			return xerrors.Errorf("collection offer index %d out of range: %w", index, domain.ErrNotFound)
		}
		seq[index] = seq[len(seq)-1]
		return im.store(tx, collection, seq[:len(seq)-1])
	})
}
