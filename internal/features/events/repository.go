package events

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists the ordered event stream.
type Repository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewRepository creates repository and ensures indexes
func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("events")
	counters := db.Collection("counters")

	_, _ = collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "seq", Value: 1}},
		},
	})

	return &Repository{collection: collection, counters: counters}
}

// NextSeq atomically allocates the next stream sequence number.
func (r *Repository) NextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "events"},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

// Insert appends one event.
func (r *Repository) Insert(ctx context.Context, event *Event) error {
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

// ListAfter returns events with seq greater than after, oldest first.
func (r *Repository) ListAfter(ctx context.Context, after int64, eventType string, limit int) ([]Event, error) {
	filter := bson.M{"seq": bson.M{"$gt": after}}
	if eventType != "" {
		filter["type"] = eventType
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []Event
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
