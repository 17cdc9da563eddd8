package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

const poolID = "rewardPool"

// Repository handles database interactions for accounts, stakes and the
// reward pool. Balance mutations use guarded updates (filter on the
// minimum balance) so a failed precondition never leaves a partial write.
type Repository struct {
	accounts *mongo.Collection
	stakes   *mongo.Collection
	pool     *mongo.Collection
}

// NewRepository creates repository and ensures indexes
func NewRepository(db *mongo.Database) *Repository {
	stakes := db.Collection("stakes")

	_, _ = stakes.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			// Per-account stake index so settlement and reputation never scan
			// the whole collection.
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "active", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})

	return &Repository{
		accounts: db.Collection("accounts"),
		stakes:   stakes,
		pool:     db.Collection("pool"),
	}
}

// EnsureAccount returns the account, creating it lazily on first touch.
func (r *Repository) EnsureAccount(ctx context.Context, address string) (*Account, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var account Account
	err := r.accounts.FindOneAndUpdate(ctx,
		bson.M{"_id": address},
		bson.M{"$setOnInsert": bson.M{
			"spendable": int64(0),
			"locked":    int64(0),
			"createdAt": now,
			"updatedAt": now,
		}},
		opts,
	).Decode(&account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Account returns the account or ErrNotFound.
func (r *Repository) Account(ctx context.Context, address string) (*Account, error) {
	var account Account
	err := r.accounts.FindOne(ctx, bson.M{"_id": address}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: account %s", errs.ErrNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreditSpendable adds to an account's spendable balance, creating the
// account if needed.
func (r *Repository) CreditSpendable(ctx context.Context, address string, amount int64) error {
	now := time.Now()
	_, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": address},
		bson.M{
			"$inc":         bson.M{"spendable": amount},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"locked": int64(0), "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// DebitSpendable subtracts from spendable, failing the precondition when
// the balance is insufficient.
func (r *Repository) DebitSpendable(ctx context.Context, address string, amount int64) error {
	result, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": address, "spendable": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"spendable": -amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: insufficient funds", errs.ErrPrecondition)
	}
	return nil
}

// MoveSpendableToLocked shifts amount from spendable into locked.
func (r *Repository) MoveSpendableToLocked(ctx context.Context, address string, amount int64) error {
	result, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": address, "spendable": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"spendable": -amount, "locked": amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: insufficient funds", errs.ErrPrecondition)
	}
	return nil
}

// ReleaseLocked removes lockedAmount from locked and credits
// spendableCredit (they differ when a withdrawal penalty applies).
func (r *Repository) ReleaseLocked(ctx context.Context, address string, lockedAmount, spendableCredit int64) error {
	result, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": address, "locked": bson.M{"$gte": lockedAmount}},
		bson.M{
			"$inc": bson.M{"locked": -lockedAmount, "spendable": spendableCredit},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: locked balance below stake amount", errs.ErrConflict)
	}
	return nil
}

// DebitLocked removes amount from locked without crediting anything back
// (forfeiture path).
func (r *Repository) DebitLocked(ctx context.Context, address string, amount int64) error {
	result, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": address, "locked": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"locked": -amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: locked balance below stake amount", errs.ErrConflict)
	}
	return nil
}

// InsertStake records a new active stake.
func (r *Repository) InsertStake(ctx context.Context, stake *Stake) error {
	_, err := r.stakes.InsertOne(ctx, stake)
	return err
}

// Stake returns a stake by id or ErrNotFound.
func (r *Repository) Stake(ctx context.Context, id string) (*Stake, error) {
	var stake Stake
	err := r.stakes.FindOne(ctx, bson.M{"_id": id}).Decode(&stake)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: stake %s", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// DeactivateStake flips active to false exactly once. A second attempt
// loses the compare-and-swap and reports the stake as already settled.
func (r *Repository) DeactivateStake(ctx context.Context, id string, penalty int64) error {
	now := time.Now()
	result, err := r.stakes.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false, "releasedAt": now, "penalty": penalty}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: stake %s is not active", errs.ErrPrecondition, id)
	}
	return nil
}

// ActiveStakesByOwner returns the owner's active stakes for reputation
// recomputation and settlement.
func (r *Repository) ActiveStakesByOwner(ctx context.Context, owner string) ([]Stake, error) {
	cursor, err := r.stakes.Find(ctx, bson.M{"owner": owner, "active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stakes []Stake
	if err = cursor.All(ctx, &stakes); err != nil {
		return nil, err
	}
	return stakes, nil
}

// StakesByOwner returns all of the owner's stakes, newest first, paginated.
func (r *Repository) StakesByOwner(ctx context.Context, owner string, offset, limit int) ([]Stake, int64, error) {
	filter := bson.M{"owner": owner}

	total, err := r.stakes.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.stakes.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var stakes []Stake
	if err = cursor.All(ctx, &stakes); err != nil {
		return nil, 0, err
	}
	return stakes, total, nil
}

// AdjustPool changes the reward pool balance by delta. The pool may go
// negative: rewards paid before penalties accrue are a treasury liability
// settled by admin funding.
func (r *Repository) AdjustPool(ctx context.Context, delta int64) error {
	_, err := r.pool.UpdateOne(ctx,
		bson.M{"_id": poolID},
		bson.M{"$inc": bson.M{"balance": delta}},
		options.Update().SetUpsert(true),
	)
	return err
}

// PoolBalance returns the current reward pool balance.
func (r *Repository) PoolBalance(ctx context.Context) (int64, error) {
	var doc struct {
		Balance int64 `bson:"balance"`
	}
	err := r.pool.FindOne(ctx, bson.M{"_id": poolID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Balance, nil
}

// Totals sums spendable and locked balances across all accounts.
func (r *Repository) Totals(ctx context.Context) (spendable, locked int64, err error) {
	cursor, err := r.accounts.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"spendable": bson.M{"$sum": "$spendable"},
			"locked":    bson.M{"$sum": "$locked"},
		}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Spendable int64 `bson:"spendable"`
		Locked    int64 `bson:"locked"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, nil
	}
	return results[0].Spendable, results[0].Locked, nil
}
