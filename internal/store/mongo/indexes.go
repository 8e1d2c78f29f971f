package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureIndexes(ctx context.Context, db *mongodrv.Database) error {
	plan := map[string][]mongodrv.IndexModel{
		ColProducts: {
			newIndex("code", 1, "products_code_unique", true),
			newIndex("category", 1, "products_category", false),
		},
		ColClients: {
			newIndex("broker_id", 1, "clients_broker_id", false),
			newIndex("cnp", 1, "clients_cnp", false),
		},
		ColBrokers: {
			newIndex("email", 1, "brokers_email_unique", true),
		},
		ColOffers: {
			newIndex("offer_number", 1, "offers_number_unique", true),
			newIndex("broker_id", 1, "offers_broker_id", false),
			compoundIndex("offers_status_expires_at", "status", "expires_at"),
		},
		ColPolicies: {
			newIndex("policy_number", 1, "policies_number_unique", true),
			newIndex("offer_id", 1, "policies_offer_id_unique", true),
			newIndex("broker_id", 1, "policies_broker_id", false),
			compoundIndex("policies_status_end_date", "status", "end_date"),
		},
		ColCommissions: {
			newIndex("policy_id", 1, "commissions_policy_id", false),
			newIndex("broker_id", 1, "commissions_broker_id", false),
		},
		ColActivity: {
			compoundIndex("activity_entity_timeline", "entity_type", "entity_id", "created_at"),
		},
	}
	for _, name := range []string{ColProducts, ColClients, ColBrokers, ColOffers, ColPolicies, ColCommissions, ColActivity} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, plan[name]); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	return nil
}

func newIndex(field string, asc int32, name string, unique bool) mongodrv.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts = opts.SetUnique(true)
	}
	return mongodrv.IndexModel{
		Keys:    bson.D{{Key: field, Value: asc}},
		Options: opts,
	}
}

func compoundIndex(name string, fields ...string) mongodrv.IndexModel {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return mongodrv.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}
