package evidence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phishguard/phishguard-api/internal/features/reputation"
	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// fakeStore is an in-memory Store with the repository's guard
// semantics: unique content hashes, one validation per reviewer,
// one-shot finalization.
type fakeStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*Item
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[primitive.ObjectID]*Item)}
}

func (f *fakeStore) Insert(_ context.Context, item *Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.ContentHash == item.ContentHash {
			return fmt.Errorf("%w: evidence with hash %s already exists", errs.ErrValidation, item.ContentHash)
		}
	}
	item.ID = primitive.NewObjectID()
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeStore) Get(_ context.Context, id primitive.ObjectID) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	copied := *item
	copied.Validations = append([]Validation(nil), item.Validations...)
	return &copied, nil
}

func (f *fakeStore) ByHash(_ context.Context, hash string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ContentHash == hash {
			copied := *item
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: evidence with hash %s", errs.ErrNotFound, hash)
}

func (f *fakeStore) List(_ context.Context, query ListQuery, offset, limit int) ([]Item, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Item
	for _, item := range f.items {
		if query.Status != "" && item.Status != query.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) AppendValidation(_ context.Context, id primitive.ObjectID, v Validation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	if item.Status != StatusPending && item.Status != StatusUnderReview {
		return fmt.Errorf("%w: item is finalized", errs.ErrPrecondition)
	}
	for _, existing := range item.Validations {
		if existing.Validator == v.Validator {
			return fmt.Errorf("%w: %s already validated it", errs.ErrPrecondition, v.Validator)
		}
	}
	item.Validations = append(item.Validations, v)
	if v.Positive {
		item.PositiveCount++
	} else {
		item.NegativeCount++
	}
	item.Status = StatusUnderReview
	return nil
}

func (f *fakeStore) Finalize(_ context.Context, id primitive.ObjectID, status, level string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	if item.Status != StatusPending && item.Status != StatusUnderReview {
		return fmt.Errorf("%w: evidence %s already finalized", errs.ErrConflict, id.Hex())
	}
	now := time.Now()
	item.Status = status
	item.ValidationLevel = level
	item.FinalizedAt = &now
	return nil
}

func (f *fakeStore) AppendAnnotation(_ context.Context, id primitive.ObjectID, a Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return fmt.Errorf("%w: evidence %s", errs.ErrNotFound, id.Hex())
	}
	item.Annotations = append(item.Annotations, a)
	return nil
}

// fakeReputation hands out fixed totals and records base adjustments.
type fakeReputation struct {
	mu       sync.Mutex
	totals   map[string]int64
	adjusted map[string]int64
}

func newFakeReputation() *fakeReputation {
	return &fakeReputation{
		totals:   make(map[string]int64),
		adjusted: make(map[string]int64),
	}
}

func (f *fakeReputation) ProfileOf(_ context.Context, address string) (*reputation.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &reputation.Profile{Address: address, TotalReputation: f.totals[address]}, nil
}

func (f *fakeReputation) AdjustBase(_ context.Context, address string, delta int64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjusted[address] += delta
	return nil
}

type nopSink struct{}

func (nopSink) Publish(context.Context, string, string, string, map[string]interface{}) {}

func testParams() Params {
	return Params{
		MaxFileSize:             1024 * 1024,
		MinValidationReputation: 50,
		MinValidationsRequired:  3,
		ValidationTimeout:       48 * time.Hour,
	}
}

func newTestService(store *fakeStore, reps *fakeReputation) *Service {
	return NewService(store, reps, nopSink{}, testParams())
}

func testHash(seed byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", seed), 32)
}

func validRequest() *SubmitRequest {
	return &SubmitRequest{
		ContentHash: testHash(0xab),
		Kind:        "screenshot",
		Size:        2048,
		MimeType:    "image/png",
		Description: "Screenshot of the fake wallet login page",
	}
}

func TestSubmit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeReputation())
	ctx := context.Background()

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)
	require.Equal(t, StatusPending, item.Status)
	require.Equal(t, LevelBasic, item.ValidationLevel)
	require.Empty(t, item.Validations)
}

func TestSubmit_DuplicateHash(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeReputation())
	ctx := context.Background()

	_, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "bob", validRequest())
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Len(t, store.items, 1)
}

func TestSubmit_Rejections(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeReputation())
	ctx := context.Background()

	req := validRequest()
	req.Size = 2 * 1024 * 1024
	_, err := svc.Submit(ctx, "alice", req)
	require.ErrorIs(t, err, errs.ErrValidation, "oversize file")

	req = validRequest()
	req.ContentHash = "nothex"
	_, err = svc.Submit(ctx, "alice", req)
	require.ErrorIs(t, err, errs.ErrValidation, "malformed hash")
}

func TestValidate_QuorumValidates(t *testing.T) {
	store := newFakeStore()
	reps := newFakeReputation()
	svc := newTestService(store, reps)
	ctx := context.Background()

	for _, r := range []string{"r1", "r2", "r3"} {
		reps.totals[r] = 100
	}

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	mid, err := svc.Validate(ctx, "r1", item.ID, &ValidateRequest{Verdict: VerdictPositive, Level: LevelThorough})
	require.NoError(t, err)
	require.Equal(t, StatusUnderReview, mid.Status)

	_, err = svc.Validate(ctx, "r2", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.NoError(t, err)
	final, err := svc.Validate(ctx, "r3", item.ID, &ValidateRequest{Verdict: VerdictNegative})
	require.NoError(t, err)

	require.Equal(t, StatusValidated, final.Status)
	require.Equal(t, 2, final.PositiveCount)
	require.Equal(t, 1, final.NegativeCount)
	require.Equal(t, LevelThorough, final.ValidationLevel)
	require.NotNil(t, final.FinalizedAt)

	// Only the reviewers on the winning side gained reputation.
	require.Equal(t, int64(1), reps.adjusted["r1"])
	require.Equal(t, int64(1), reps.adjusted["r2"])
	require.Equal(t, int64(0), reps.adjusted["r3"])

	// The item is terminal: no further validations.
	_, err = svc.Validate(ctx, "r3", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestValidate_TieRejects(t *testing.T) {
	store := newFakeStore()
	reps := newFakeReputation()
	svc := newTestService(store, reps)
	svc.params.MinValidationsRequired = 2
	ctx := context.Background()

	reps.totals["r1"] = 100
	reps.totals["r2"] = 100

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "r1", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.NoError(t, err)
	final, err := svc.Validate(ctx, "r2", item.ID, &ValidateRequest{Verdict: VerdictNegative})
	require.NoError(t, err)

	require.Equal(t, StatusRejected, final.Status)
	require.Equal(t, int64(0), reps.adjusted["r1"])
	require.Equal(t, int64(1), reps.adjusted["r2"], "negative verdict was correct on rejection")
}

func TestValidate_Gates(t *testing.T) {
	store := newFakeStore()
	reps := newFakeReputation()
	svc := newTestService(store, reps)
	ctx := context.Background()

	reps.totals["alice"] = 100
	reps.totals["r1"] = 100
	reps.totals["weak"] = 10

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "weak", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.ErrorIs(t, err, errs.ErrPrecondition, "below reputation floor")

	_, err = svc.Validate(ctx, "alice", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.ErrorIs(t, err, errs.ErrPrecondition, "submitter validating own evidence")

	_, err = svc.Validate(ctx, "r1", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.NoError(t, err)
	_, err = svc.Validate(ctx, "r1", item.ID, &ValidateRequest{Verdict: VerdictNegative})
	require.ErrorIs(t, err, errs.ErrPrecondition, "double validation")
}

func TestValidate_Timeout(t *testing.T) {
	store := newFakeStore()
	reps := newFakeReputation()
	svc := newTestService(store, reps)
	ctx := context.Background()

	reps.totals["r1"] = 100

	clock := time.Now()
	svc.now = func() time.Time { return clock }

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	clock = clock.Add(49 * time.Hour)
	_, err = svc.Validate(ctx, "r1", item.ID, &ValidateRequest{Verdict: VerdictPositive})
	require.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestAnnotate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeReputation())
	ctx := context.Background()

	item, err := svc.Submit(ctx, "alice", validRequest())
	require.NoError(t, err)

	got, err := svc.Annotate(ctx, item.ID, &AnnotateRequest{
		Key:    "classifier.pattern",
		Value:  "seed-phrase-harvester",
		Source: "phish-classifier-v2",
	})
	require.NoError(t, err)
	require.Len(t, got.Annotations, 1)
	require.Equal(t, "seed-phrase-harvester", got.Annotations[0].Value)
}
