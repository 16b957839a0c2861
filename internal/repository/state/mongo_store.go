package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mg "gold_debts/internal/config/connections/mongo"
	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultCollection = "app_state"

type MongoStore struct {
	m          *mg.Mongo
	collection string
	stateID    string
}

func NewMongoStore(m *mg.Mongo, collection, stateID string) *MongoStore {
	if collection == "" {
		collection = DefaultCollection
	}
	if stateID == "" {
		stateID = DefaultStateID
	}
	return &MongoStore{m: m, collection: collection, stateID: stateID}
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) coll() (*mongo.Collection, error) {
	if s.m == nil || s.m.Client == nil || s.m.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}
	return s.m.Database.Collection(s.collection), nil
}

func (s *MongoStore) Load(ctx context.Context) (list []any, err error) {
	ctx, span := tracer.Start(ctx, "state.mongo.load")
	span.SetAttributes(attribute.String("state.id", s.stateID))
	defer func() {
		if errors.Is(err, ports.ErrStateNotFound) {
			endSpan(span, nil)
			return
		}
		endSpan(span, err)
	}()

	coll, err := s.coll()
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = coll.FindOne(ctx, bson.M{"_id": s.stateID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find state: %w", err)
	}
	return debtsFromDocument(doc)
}

// debtsFromDocument extracts the "debts" array through relaxed extended JSON,
// which renders BSON numbers as plain JSON numbers.
func debtsFromDocument(doc bson.M) ([]any, error) {
	raw, ok := doc["debts"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: document has no debts field", ports.ErrStateNotFound)
	}
	b, err := bson.MarshalExtJSON(bson.M{"debts": raw}, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode remote debts: %w", err)
	}

	var wrapper struct {
		Debts json.RawMessage `json:"debts"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil, fmt.Errorf("decode remote document: %w", err)
	}
	return decodeDebts(wrapper.Debts)
}

func (s *MongoStore) Save(ctx context.Context, debts []models.Debt, updatedAt time.Time) (err error) {
	ctx, span := tracer.Start(ctx, "state.mongo.save")
	span.SetAttributes(
		attribute.String("state.id", s.stateID),
		attribute.Int("state.debts", len(debts)),
	)
	defer func() { endSpan(span, err) }()

	list, err := plainDebts(debts)
	if err != nil {
		return err
	}
	coll, err := s.coll()
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"debts":     list,
		"updatedAt": updatedAt.UTC().Format(time.RFC3339Nano),
	}}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": s.stateID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert state: %w", err)
	}
	return nil
}
