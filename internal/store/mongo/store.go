// Package mongo implements model.Store against MongoDB, grounded on
// the sibling feed-simulator repo's persist package (connect, ensure
// indexes, query/insert helpers against a single mongo.Database).
package mongo

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultDBName = "stormalert"

// Store wraps a MongoDB client and database and implements
// model.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB at uri and ensures the collections' indexes
// exist. uri should include the database name
// (e.g. mongodb://localhost:27017/stormalert); if omitted, "stormalert"
// is used.
func New(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	dbName := defaultDBName
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := EnsureIndexes(ctx, s.db); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	log.Printf("[store/mongo] connected (db=%s)", dbName)
	return s, nil
}

// Close implements model.Store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
