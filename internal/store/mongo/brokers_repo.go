package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type BrokerRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *BrokerRepo) Create(ctx context.Context, b *core.Broker) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, ColBrokers)
	if err != nil {
		return err
	}
	doc := toBrokerDoc(*b)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKey(err) {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.insert: %w", err)
	}
	b.ID = id
	return nil
}

func (r *BrokerRepo) Update(ctx context.Context, b core.Broker) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": b.ID}, toBrokerDoc(b))
	if err != nil {
		if isDuplicateKey(err) {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrBrokerNotFound
	}
	return nil
}

func (r *BrokerRepo) Get(ctx context.Context, id int64) (core.Broker, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *BrokerRepo) GetByEmail(ctx context.Context, email string) (core.Broker, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *BrokerRepo) findOne(ctx context.Context, filter bson.M) (core.Broker, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc BrokerDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Broker{}, core.ErrBrokerNotFound
		}
		return core.Broker{}, fmt.Errorf("brokers.findOne: %w", err)
	}
	return fromBrokerDoc(doc), nil
}

func (r *BrokerRepo) List(ctx context.Context) ([]core.Broker, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sort := bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("brokers.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromBrokerDoc)
	if err != nil {
		return nil, fmt.Errorf("brokers.decode: %w", err)
	}
	return out, nil
}
