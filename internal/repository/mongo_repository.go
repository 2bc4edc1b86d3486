package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository is the durable snapshot backend, selected by config when
// carts must outlive the Redis instance.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("cart_snapshots"),
	}
}

type mongoSnapshot struct {
	SessionID string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (m *MongoRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc mongoSnapshot
	err := m.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(doc.Payload, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal snapshot failed: %w", err2)
	}
	return &cart, nil
}

func (m *MongoRepository) Save(ctx context.Context, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{
		"payload":    payload,
		"updated_at": time.Now(),
	}}
	_, err = m.collection.UpdateOne(ctx, bson.M{"_id": cart.SessionID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// CreateIndexes sets the TTL on abandoned snapshots.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60),
	}

	_, err := m.collection.Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
