package blacklist

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Repository handles database interactions for the blacklist
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("blacklist")}
}

// Add inserts an entry; adding an existing value is idempotent.
func (r *Repository) Add(ctx context.Context, entry *Entry) error {
	entry.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// Remove deletes an entry.
func (r *Repository) Remove(ctx context.Context, value string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": value})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: blacklist entry %s", errs.ErrNotFound, value)
	}
	return nil
}

// Contains reports whether value is blacklisted.
func (r *Repository) Contains(ctx context.Context, value string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": value})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns entries, newest first.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]Entry, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
