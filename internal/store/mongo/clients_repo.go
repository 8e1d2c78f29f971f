package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ClientRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *ClientRepo) Create(ctx context.Context, c *core.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, ColClients)
	if err != nil {
		return err
	}
	doc := toClientDoc(*c)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("clients.insert: %w", err)
	}
	c.ID = id
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, id int64) (core.Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc ClientDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Client{}, core.ErrClientNotFound
		}
		return core.Client{}, fmt.Errorf("clients.findOne: %w", err)
	}
	return fromClientDoc(doc), nil
}

func (r *ClientRepo) Update(ctx context.Context, c core.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := toClientDoc(c)
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, doc)
	if err != nil {
		return fmt.Errorf("clients.replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("clients.delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.ErrClientNotFound
	}
	return nil
}

// clientFilter matches the search text case-insensitively against names, email and CNP.
func clientFilter(f core.ClientFilter) bson.M {
	m := bson.M{}
	if f.BrokerID != nil {
		m["broker_id"] = *f.BrokerID
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		m["$or"] = bson.A{
			bson.M{"first_name": re},
			bson.M{"last_name": re},
			bson.M{"email": re},
			bson.M{"cnp": re},
		}
	}
	return m
}

func (r *ClientRepo) List(ctx context.Context, filter core.ClientFilter) ([]core.Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sort := bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := r.coll.Find(ctx, clientFilter(filter), options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("clients.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromClientDoc)
	if err != nil {
		return nil, fmt.Errorf("clients.decode: %w", err)
	}
	return out, nil
}
