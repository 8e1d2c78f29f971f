package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// ActivityRepo is append-only; there is no update or delete path.
type ActivityRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *ActivityRepo) Append(ctx context.Context, e *core.ActivityLogEntry) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, ColActivity)
	if err != nil {
		return err
	}
	doc := ActivityDoc{
		ID:           id,
		EntityType:   string(e.EntityType),
		EntityID:     e.EntityID,
		ActivityType: string(e.ActivityType),
		Description:  e.Description,
		PerformedBy:  e.PerformedBy,
		CreatedAt:    e.CreatedAt.UTC(),
	}
	if len(e.Metadata) > 0 {
		doc.Metadata = toJSON(e.Metadata)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("activity.insert: %w", err)
	}
	e.ID = id
	return nil
}

func (r *ActivityRepo) ListForEntity(ctx context.Context, entityType core.EntityType, entityID int64, limit int) ([]core.ActivityLogEntry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"entity_type": string(entityType), "entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("activity.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromActivityDoc)
	if err != nil {
		return nil, fmt.Errorf("activity.decode: %w", err)
	}
	return out, nil
}
