package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// LoadAllSettings implements model.Store.
func (s *Store) LoadAllSettings(ctx context.Context) ([]model.UserSettings, error) {
	cursor, err := s.db.Collection(collSettings).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo: load settings: %w", err)
	}
	defer cursor.Close(ctx)

	settings := []model.UserSettings{}
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("mongo: decode settings: %w", err)
	}
	return settings, nil
}

// LoadActiveStocks implements model.Store, deriving the distinct set
// of instruments with at least one active subscriber directly from
// user_settings rather than maintaining a separate instruments
// collection.
func (s *Store) LoadActiveStocks(ctx context.Context) ([]model.Instrument, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"active": true}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "exchange", Value: "$exchange"}, {Key: "token", Value: "$token"}}},
			{Key: "trading_symbol", Value: bson.M{"$first": "$trading_symbol"}},
		}}},
	}

	cursor, err := s.db.Collection(collSettings).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo: load active stocks: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		ID struct {
			Exchange string `bson:"exchange"`
			Token    string `bson:"token"`
		} `bson:"_id"`
		TradingSymbol string `bson:"trading_symbol"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("mongo: decode active stocks: %w", err)
	}

	instruments := make([]model.Instrument, len(raw))
	for i, r := range raw {
		instruments[i] = model.Instrument{
			Token:         r.ID.Token,
			Exchange:      r.ID.Exchange,
			TradingSymbol: r.TradingSymbol,
		}
	}
	return instruments, nil
}

// BulkInsertAlerts implements model.Store. Safe to call with an empty
// slice.
func (s *Store) BulkInsertAlerts(ctx context.Context, alerts []model.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	docs := make([]interface{}, len(alerts))
	for i, a := range alerts {
		docs[i] = a
	}

	_, err := s.db.Collection(collAlerts).InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("mongo: bulk insert alerts: %w", err)
	}
	return nil
}

// DeleteAlertsOlderThan implements model.Store.
func (s *Store) DeleteAlertsOlderThan(ctx context.Context, cutoffUnixSeconds int64) (int64, error) {
	cutoff := time.Unix(cutoffUnixSeconds, 0).UTC()
	result, err := s.db.Collection(collAlerts).DeleteMany(ctx, bson.M{
		"fired_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete old alerts: %w", err)
	}
	return result.DeletedCount, nil
}

const systemTokenKey = "tick_source_access_token"

type systemTokenDoc struct {
	Key         string    `bson:"key"`
	AccessToken string    `bson:"access_token"`
	IssuedAt    time.Time `bson:"issued_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

// LoadSystemToken implements model.Store.
func (s *Store) LoadSystemToken(ctx context.Context) (model.SystemTokenState, error) {
	var doc systemTokenDoc
	err := s.db.Collection(collSystem).FindOne(ctx, bson.M{"key": systemTokenKey}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.SystemTokenState{}, nil
	}
	if err != nil {
		return model.SystemTokenState{}, fmt.Errorf("mongo: load system token: %w", err)
	}
	return model.SystemTokenState{
		AccessToken: doc.AccessToken,
		IssuedAt:    doc.IssuedAt,
		ExpiresAt:   doc.ExpiresAt,
	}, nil
}

// SaveSystemToken implements model.Store.
func (s *Store) SaveSystemToken(ctx context.Context, tok model.SystemTokenState) error {
	doc := systemTokenDoc{
		Key:         systemTokenKey,
		AccessToken: tok.AccessToken,
		IssuedAt:    tok.IssuedAt,
		ExpiresAt:   tok.ExpiresAt,
	}
	_, err := s.db.Collection(collSystem).ReplaceOne(
		ctx,
		bson.M{"key": systemTokenKey},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: save system token: %w", err)
	}
	return nil
}
