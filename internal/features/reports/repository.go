package reports

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

// Repository handles database interactions for reports, votes and
// disputes. Tally and status writes are compare-and-set: the filter pins
// the expected status (and version for tallies) so a lost race matches
// zero documents instead of clobbering a concurrent transition.
type Repository struct {
	reports  *mongo.Collection
	votes    *mongo.Collection
	disputes *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	repo := &Repository{
		reports:  db.Collection("reports"),
		votes:    db.Collection("votes"),
		disputes: db.Collection("disputes"),
	}
	repo.createIndexes()
	return repo
}

func (r *Repository) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// One vote per validator per report, enforced at the storage layer.
	r.votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "reportId", Value: 1},
			{Key: "validator", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})

	r.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "submitter", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "votingDeadline", Value: 1}}},
	})

	r.disputes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "reportId", Value: 1}},
	})
}

// Insert stores a new report.
func (r *Repository) Insert(ctx context.Context, report *Report) error {
	result, err := r.reports.InsertOne(ctx, report)
	if err != nil {
		return err
	}
	report.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Get returns the report or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id primitive.ObjectID) (*Report, error) {
	var report Report
	err := r.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: report %s", errs.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports matching the query, newest first.
func (r *Repository) List(ctx context.Context, query ListQuery, offset, limit int) ([]Report, int64, error) {
	filter := bson.M{}
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if query.Type != "" {
		filter["type"] = query.Type
	}
	if query.Submitter != "" {
		filter["submitter"] = query.Submitter
	}

	total, err := r.reports.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []Report
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListDue returns pending reports whose voting deadline has passed,
// oldest deadline first. Served by the (status, votingDeadline) index.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]Report, error) {
	filter := bson.M{
		"status":         StatusPending,
		"votingDeadline": bson.M{"$lt": now},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "votingDeadline", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []Report
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertVote stores a vote. A duplicate (reportId, validator) pair is a
// precondition failure: the validator already voted.
func (r *Repository) InsertVote(ctx context.Context, vote *Vote) error {
	result, err := r.votes.InsertOne(ctx, vote)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s already voted on report %s", errs.ErrPrecondition, vote.Validator, vote.ReportID.Hex())
	}
	if err != nil {
		return err
	}
	vote.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// HasVote reports whether the validator already voted on the report.
func (r *Repository) HasVote(ctx context.Context, reportID primitive.ObjectID, validator string) (bool, error) {
	count, err := r.votes.CountDocuments(ctx, bson.M{"reportId": reportID, "validator": validator})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// VotesByReport returns all votes on a report, oldest first.
func (r *Repository) VotesByReport(ctx context.Context, reportID primitive.ObjectID) ([]Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.votes.Find(ctx, bson.M{"reportId": reportID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var votes []Vote
	if err = cursor.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// ApplyVote bumps the tally on a pending report at the expected version.
// A zero match means the report finalized or changed underneath us.
func (r *Repository) ApplyVote(ctx context.Context, id primitive.ObjectID, version int64, approve bool) error {
	inc := bson.M{"invalidVotes": 1, "voterCount": 1, "version": 1}
	if approve {
		inc = bson.M{"validVotes": 1, "voterCount": 1, "version": 1}
	}

	result, err := r.reports.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending, "version": version},
		bson.M{"$inc": inc},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: report %s changed concurrently", errs.ErrConflict, id.Hex())
	}
	return nil
}

// TransitionStatus moves a report from one status to another exactly
// once. The losing side of a finalization race matches zero documents.
func (r *Repository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to string) error {
	now := time.Now()
	result, err := r.reports.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set": bson.M{"status": to, "finalizedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: report %s is not %s", errs.ErrConflict, id.Hex(), from)
	}
	return nil
}

// InsertDispute stores a dispute and bumps the report's dispute count.
func (r *Repository) InsertDispute(ctx context.Context, dispute *Dispute) error {
	result, err := r.disputes.InsertOne(ctx, dispute)
	if err != nil {
		return err
	}
	dispute.ID = result.InsertedID.(primitive.ObjectID)

	_, err = r.reports.UpdateOne(ctx,
		bson.M{"_id": dispute.ReportID},
		bson.M{"$inc": bson.M{"disputeCount": 1}},
	)
	return err
}

// DisputesByReport returns all disputes on a report, oldest first.
func (r *Repository) DisputesByReport(ctx context.Context, reportID primitive.ObjectID) ([]Dispute, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.disputes.Find(ctx, bson.M{"reportId": reportID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var disputes []Dispute
	if err = cursor.All(ctx, &disputes); err != nil {
		return nil, err
	}
	return disputes, nil
}
