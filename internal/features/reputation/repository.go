package reputation

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Repository handles database interactions for reputation profiles
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("reputation_profiles")}
}

// Ensure returns the profile, creating a bronze zero profile on first touch.
func (r *Repository) Ensure(ctx context.Context, address string) (*Profile, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var profile Profile
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": address},
		bson.M{"$setOnInsert": bson.M{
			"baseReputation":   int64(0),
			"stakedReputation": int64(0),
			"totalReputation":  int64(0),
			"tier":             TierBronze,
			"reportsSubmitted": int64(0),
			"votesCast":        int64(0),
			"correctVotes":     int64(0),
			"falseReports":     int64(0),
			"slashingCount":    int64(0),
			"createdAt":        now,
			"updatedAt":        now,
		}},
		opts,
	).Decode(&profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Get returns the profile or ErrNotFound.
func (r *Repository) Get(ctx context.Context, address string) (*Profile, error) {
	var profile Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": address}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: reputation profile %s", errs.ErrNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save replaces the profile document.
func (r *Repository) Save(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": profile.Address},
		profile,
		options.Replace().SetUpsert(true),
	)
	return err
}

// IncCounter bumps a single activity counter.
func (r *Repository) IncCounter(ctx context.Context, address, field string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": address},
		bson.M{
			"$inc": bson.M{field: int64(1)},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

// Top returns the highest-reputation profiles.
func (r *Repository) Top(ctx context.Context, limit int) ([]Profile, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "totalReputation", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []Profile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
