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

type CommissionRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *CommissionRepo) Get(ctx context.Context, id int64) (core.Commission, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc CommissionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Commission{}, core.ErrCommissionNotFound
		}
		return core.Commission{}, fmt.Errorf("commissions.findOne: %w", err)
	}
	return fromCommissionDoc(doc), nil
}

func commissionFilter(f core.CommissionFilter) bson.M {
	m := bson.M{}
	if f.BrokerID != nil {
		m["broker_id"] = *f.BrokerID
	}
	if f.PolicyID > 0 {
		m["policy_id"] = f.PolicyID
	}
	if f.Status != "" {
		m["status"] = string(f.Status)
	}
	return m
}

func (r *CommissionRepo) List(ctx context.Context, filter core.CommissionFilter) ([]core.Commission, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	cur, err := r.coll.Find(ctx, commissionFilter(filter), options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("commissions.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromCommissionDoc)
	if err != nil {
		return nil, fmt.Errorf("commissions.decode: %w", err)
	}
	return out, nil
}

func (r *CommissionRepo) TransitionStatus(ctx context.Context, id int64, from, next core.CommissionStatus, paidAt *time.Time, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":     string(next),
		"updated_at": at.UTC(),
	}
	if paidAt != nil {
		set["payment_date"] = paidAt.UTC()
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("commissions.transition: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("commissions.count: %w", err)
	}
	if n == 0 {
		return core.ErrCommissionNotFound
	}
	return fmt.Errorf("%w: commission %d is no longer %s", core.ErrInvalidState, id, from)
}
