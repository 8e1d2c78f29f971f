package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type OfferRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *OfferRepo) Create(ctx context.Context, o *core.Offer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, ColOffers)
	if err != nil {
		return err
	}
	doc := toOfferDoc(*o)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: offer number %s already used", core.ErrConflict, o.OfferNumber)
		}
		return fmt.Errorf("offers.insert: %w", err)
	}
	o.ID = id
	return nil
}

func (r *OfferRepo) Get(ctx context.Context, id int64) (core.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc OfferDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Offer{}, core.ErrOfferNotFound
		}
		return core.Offer{}, fmt.Errorf("offers.findOne: %w", err)
	}
	return fromOfferDoc(doc), nil
}

func offerFilter(f core.OfferFilter) bson.M {
	m := bson.M{}
	if f.BrokerID != nil {
		m["broker_id"] = *f.BrokerID
	}
	if f.ClientID > 0 {
		m["client_id"] = f.ClientID
	}
	if f.Status == "" {
		return m
	}
	if f.AsOf.IsZero() {
		m["status"] = string(f.Status)
		return m
	}
	// pending and expired match on their effective status
	asOf := f.AsOf.UTC()
	switch f.Status {
	case core.OfferStatusPending:
		m["status"] = string(core.OfferStatusPending)
		m["expires_at"] = bson.M{"$gte": asOf}
	case core.OfferStatusExpired:
		m["$or"] = bson.A{
			bson.M{"status": string(core.OfferStatusExpired)},
			bson.M{"status": string(core.OfferStatusPending), "expires_at": bson.M{"$lt": asOf}},
		}
	default:
		m["status"] = string(f.Status)
	}
	return m
}

func (r *OfferRepo) List(ctx context.Context, filter core.OfferFilter) ([]core.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	cur, err := r.coll.Find(ctx, offerFilter(filter), options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("offers.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromOfferDoc)
	if err != nil {
		return nil, fmt.Errorf("offers.decode: %w", err)
	}
	return out, nil
}

func (r *OfferRepo) TransitionStatus(ctx context.Context, id int64, from, next core.OfferStatus, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return transitionOffer(ctx, r.coll, id, from, next, at)
}

// transitionOffer is a compare-and-set on the stored status. ctx may carry a session.
func transitionOffer(ctx context.Context, coll *mongodrv.Collection, id int64, from, next core.OfferStatus, at time.Time) error {
	at = at.UTC()
	set := bson.M{
		"status":     string(next),
		"updated_at": at,
	}
	switch next {
	case core.OfferStatusAccepted:
		set["accepted_at"] = at
	case core.OfferStatusRejected:
		set["rejected_at"] = at
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("offers.transition: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("offers.count: %w", err)
	}
	if n == 0 {
		return core.ErrOfferNotFound
	}
	return fmt.Errorf("%w: offer %d is no longer %s", core.ErrInvalidState, id, from)
}

func (r *OfferRepo) ExpireOffers(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	before = before.UTC()
	filter := bson.M{
		"status":     string(core.OfferStatusPending),
		"expires_at": bson.M{"$lt": before},
	}
	update := bson.M{"$set": bson.M{
		"status":     string(core.OfferStatusExpired),
		"updated_at": before,
	}}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("offers.expireMany: %w", err)
	}
	return res.ModifiedCount, nil
}
