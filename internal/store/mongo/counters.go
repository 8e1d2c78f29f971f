package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// idCounterPrefix keeps document id counters apart from business numbering.
const idCounterPrefix = "_id:"

// Counters backs human-readable numbering (offer and policy numbers) and
// the int64 document ids the core expects.
type Counters struct{ base }

func (r *Counters) NextSequence(ctx context.Context, name string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.next(ctx, name)
}

func (b base) next(ctx context.Context, name string) (int64, error) {
	// Atomic increment using FindOneAndUpdate with upsert
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result struct {
		Seq int64 `bson:"seq"`
	}
	if err := b.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return 0, fmt.Errorf("counters.next %s: %w", name, err)
	}
	return result.Seq, nil
}

func (b base) nextID(ctx context.Context, collection string) (int64, error) {
	return b.next(ctx, idCounterPrefix+collection)
}
