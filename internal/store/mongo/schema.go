package mongo

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	collSettings = "user_settings"
	collAlerts   = "alerts"
	collSystem   = "system_state"
)

// EnsureIndexes creates idempotent indexes on every collection the
// store touches.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: collSettings,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "token", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: collSettings,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "active", Value: 1}},
			},
		},
		{
			collection: collAlerts,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "alert_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: collAlerts,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "fired_at", Value: 1}},
			},
		},
		{
			collection: collAlerts,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "fired_at", Value: -1}},
			},
		},
		{
			collection: collSystem,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for _, i := range indexes {
		if _, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("mongo: create index on %s: %w", i.collection, err)
		}
	}

	log.Println("[store/mongo] indexes ensured")
	return nil
}
