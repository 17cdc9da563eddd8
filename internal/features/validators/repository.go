package validators

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Repository handles database interactions for the validator registry
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("validators")}
}

// Insert registers a validator. Registration is one-time: the address is
// the document id, so a second attempt surfaces as a duplicate key.
func (r *Repository) Insert(ctx context.Context, v *Validator) error {
	_, err := r.collection.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: validator %s already registered", errs.ErrConflict, v.Address)
	}
	return err
}

// Get returns the validator or ErrNotFound.
func (r *Repository) Get(ctx context.Context, address string) (*Validator, error) {
	var v Validator
	err := r.collection.FindOne(ctx, bson.M{"_id": address}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: validator %s", errs.ErrNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RecordOutcome updates totals and nudges validator reputation by one
// point in the direction of correctness.
func (r *Repository) RecordOutcome(ctx context.Context, address string, correct bool) error {
	inc := bson.M{"totalValidations": int64(1), "reputation": int64(-1)}
	if correct {
		inc = bson.M{"totalValidations": int64(1), "correctValidations": int64(1), "reputation": int64(1)}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": address}, bson.M{"$inc": inc})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: validator %s", errs.ErrNotFound, address)
	}
	return nil
}

// SetActive enables or disables a validator (admin).
func (r *Repository) SetActive(ctx context.Context, address string, active bool) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": address},
		bson.M{"$set": bson.M{"active": active}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: validator %s", errs.ErrNotFound, address)
	}
	return nil
}

// List returns validators, newest first, optionally filtered by active.
func (r *Repository) List(ctx context.Context, active *bool, offset, limit int) ([]Validator, int64, error) {
	filter := bson.M{}
	if active != nil {
		filter["active"] = *active
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "registeredAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []Validator
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// NewValidator builds the baseline registry entry for an address.
func NewValidator(address string) *Validator {
	return &Validator{
		Address:      address,
		Reputation:   BaselineReputation,
		Active:       true,
		RegisteredAt: time.Now(),
	}
}
