package evidence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Repository handles database interactions for evidence items.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	repo := &Repository{collection: db.Collection("evidence")}
	repo.createIndexes()
	return repo
}

func (r *Repository) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Content hashes are globally unique across all evidence.
	r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contentHash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "submittedAt", Value: -1}},
	})
}

// Insert stores a new item. A duplicate content hash is a validation
// failure: the caller submitted something already on file.
func (r *Repository) Insert(ctx context.Context, item *Item) error {
	result, err := r.collection.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: evidence with hash %s already exists", errs.ErrValidation, item.ContentHash)
	}
	if err != nil {
		return err
	}
	item.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Get returns the item or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id primitive.ObjectID) (*Item, error) {
	var item Item
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ByHash returns the item with the given content hash, if any.
func (r *Repository) ByHash(ctx context.Context, hash string) (*Item, error) {
	var item Item
	err := r.collection.FindOne(ctx, bson.M{"contentHash": hash}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: evidence with hash %s", errs.ErrNotFound, hash)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items matching the query, newest first.
func (r *Repository) List(ctx context.Context, query ListQuery, offset, limit int) ([]Item, int64, error) {
	filter := bson.M{}
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if query.Kind != "" {
		filter["kind"] = query.Kind
	}
	if query.Submitter != "" {
		filter["submitter"] = query.Submitter
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// AppendValidation pushes a validation onto a non-terminal item,
// guarding against the same validator appearing twice. A zero match
// means the item finalized or the validator already validated it.
func (r *Repository) AppendValidation(ctx context.Context, id primitive.ObjectID, v Validation) error {
	countField := "negativeCount"
	if v.Positive {
		countField = "positiveCount"
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":                   id,
			"status":                bson.M{"$in": []string{StatusPending, StatusUnderReview}},
			"validations.validator": bson.M{"$ne": v.Validator},
		},
		bson.M{
			"$push": bson.M{"validations": v},
			"$inc":  bson.M{countField: 1},
			"$set":  bson.M{"status": StatusUnderReview},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: item is finalized or %s already validated it", errs.ErrPrecondition, v.Validator)
	}
	return nil
}

// Finalize moves an under-review item to its terminal status exactly once.
func (r *Repository) Finalize(ctx context.Context, id primitive.ObjectID, status, level string) error {
	now := time.Now()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []string{StatusPending, StatusUnderReview}}},
		bson.M{"$set": bson.M{"status": status, "validationLevel": level, "finalizedAt": now}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: evidence %s already finalized", errs.ErrConflict, id.Hex())
	}
	return nil
}

// AppendAnnotation attaches metadata to an item.
func (r *Repository) AppendAnnotation(ctx context.Context, id primitive.ObjectID, a Annotation) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"annotations": a}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	return nil
}
