package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase = "rapport"
	mongoCloseTimeout    = 5 * time.Second
)

// MongoKV stores values as documents {_id, payload, updated_at}.
type MongoKV struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ KV = (*MongoKV)(nil)

type mongoDoc struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// mongoDatabaseName parses the database name from the URI path.
func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return defaultMongoDatabase
}

// OpenMongo connects to MongoDB and uses the rating_snapshots collection of
// the database named in the URI path.
func OpenMongo(ctx context.Context, uri string) (*MongoKV, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	coll := client.Database(mongoDatabaseName(uri)).Collection(snapshotTable)
	return &MongoKV{client: client, collection: coll}, nil
}

// Get implements KV.
func (m *MongoKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc mongoDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Payload, true, nil
}

// Set implements KV.
func (m *MongoKV) Set(ctx context.Context, key string, value []byte) error {
	update := bson.M{"$set": bson.M{"payload": value, "updated_at": time.Now().UTC()}}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}

// Delete implements KV.
func (m *MongoKV) Delete(ctx context.Context, key string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close implements KV.
func (m *MongoKV) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
