package analytics

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionName is where latency samples land.
const collectionName = "analytics"

// Mongo is the document-store implementation of Store.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo connects to the document store and ensures the created_at
// index the windowed reads depend on.
func NewMongo(ctx context.Context, uri, dbName, appName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName(appName))
	if err != nil {
		return nil, fmt.Errorf("analytics: connecting to mongo: %w", err)
	}

	coll := client.Database(dbName).Collection(collectionName)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: ensuring created_at index: %w", err)
	}

	return &Mongo{coll: coll}, nil
}

var _ Store = (*Mongo)(nil)

// Insert implements the Store interface.
func (m *Mongo) Insert(ctx context.Context, s Sample) error {
	if _, err := m.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("analytics: inserting sample: %w", err)
	}
	return nil
}

// Window implements the Store interface, returning the resolve times of
// all samples with created_at in [from, to].
func (m *Mongo) Window(ctx context.Context, from, to time.Time) ([]float64, error) {
	filter := bson.M{"created_at": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetProjection(bson.M{"resolve_time": 1})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("analytics: window query: %w", err)
	}
	defer cursor.Close(ctx)

	var values []float64
	for cursor.Next(ctx) {
		var doc struct {
			ResolveTime float64 `bson:"resolve_time"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("analytics: decoding sample: %w", err)
		}
		values = append(values, doc.ResolveTime)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("analytics: window cursor: %w", err)
	}

	return values, nil
}
