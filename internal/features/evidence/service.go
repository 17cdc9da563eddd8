package evidence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/features/reputation"
	"github.com/phishguard/phishguard-api/internal/pkg/locks"
	"github.com/phishguard/phishguard-api/internal/pkg/logger"
	"github.com/phishguard/phishguard-api/internal/pkg/validator"
	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, item *Item) error
	Get(ctx context.Context, id primitive.ObjectID) (*Item, error)
	ByHash(ctx context.Context, hash string) (*Item, error)
	List(ctx context.Context, query ListQuery, offset, limit int) ([]Item, int64, error)
	AppendValidation(ctx context.Context, id primitive.ObjectID, v Validation) error
	Finalize(ctx context.Context, id primitive.ObjectID, status, level string) error
	AppendAnnotation(ctx context.Context, id primitive.ObjectID, a Annotation) error
}

// Reputation gates reviewers and rewards correct verdicts. The evidence
// quorum uses total reputation, not the report-consensus validator
// registry: anyone above the floor may review.
type Reputation interface {
	ProfileOf(ctx context.Context, address string) (*reputation.Profile, error)
	AdjustBase(ctx context.Context, address string, delta int64, correct bool) error
}

// EventSink receives one event per evidence state transition.
type EventSink interface {
	Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{})
}

// Params are the evidence quorum knobs.
type Params struct {
	MaxFileSize             int64
	MinValidationReputation int64
	MinValidationsRequired  int
	ValidationTimeout       time.Duration
}

// Service implements the evidence quorum: hash-unique submission,
// reputation-gated majority validation with synchronous finalization,
// and verbatim admin annotations. No funds move here; the only stake is
// reputational.
type Service struct {
	store      Store
	reputation Reputation
	events     EventSink
	locks      *locks.Keyed
	params     Params
	now        func() time.Time
}

func NewService(store Store, rep Reputation, sink EventSink, params Params) *Service {
	return &Service{
		store:      store,
		reputation: rep,
		events:     sink,
		locks:      locks.NewKeyed(),
		params:     params,
		now:        time.Now,
	}
}

// Submit stores a new evidence item keyed by its content hash.
func (s *Service) Submit(ctx context.Context, submitter string, req *SubmitRequest) (*Item, error) {
	if !validator.IsValidContentHash(req.ContentHash) {
		return nil, fmt.Errorf("%w: contentHash is not a valid content hash", errs.ErrValidation)
	}
	if req.Size > s.params.MaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds maximum %d", errs.ErrValidation, req.Size, s.params.MaxFileSize)
	}

	item := &Item{
		Submitter:       submitter,
		ContentHash:     req.ContentHash,
		Kind:            req.Kind,
		Size:            req.Size,
		MimeType:        req.MimeType,
		OriginalRef:     req.OriginalRef,
		Description:     req.Description,
		Status:          StatusPending,
		ValidationLevel: LevelBasic,
		Validations:     []Validation{},
		SubmittedAt:     s.now(),
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeEvidenceSubmitted, item.ID.Hex(), submitter, map[string]interface{}{
		"contentHash": item.ContentHash,
		"kind":        item.Kind,
	})
	return item, nil
}

// Get returns an evidence item by id.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Item, error) {
	return s.store.Get(ctx, id)
}

// GetByHash returns an evidence item by content hash.
func (s *Service) GetByHash(ctx context.Context, hash string) (*Item, error) {
	return s.store.ByHash(ctx, hash)
}

// List returns evidence items matching the query.
func (s *Service) List(ctx context.Context, query ListQuery, offset, limit int) ([]Item, int64, error) {
	return s.store.List(ctx, query, offset, limit)
}

// Validate records a reviewer's verdict. Reaching the required
// validation count finalizes the item synchronously: positive majority
// validates, anything else rejects.
func (s *Service) Validate(ctx context.Context, reviewer string, id primitive.ObjectID, req *ValidateRequest) (*Item, error) {
	positive := req.Verdict == VerdictPositive
	if !positive && req.Verdict != VerdictNegative {
		return nil, fmt.Errorf("%w: verdict must be %q or %q", errs.ErrValidation, VerdictPositive, VerdictNegative)
	}
	level := req.Level
	if level == "" {
		level = LevelBasic
	}

	profile, err := s.reputation.ProfileOf(ctx, reviewer)
	if err != nil {
		return nil, err
	}
	if profile.TotalReputation < s.params.MinValidationReputation {
		return nil, fmt.Errorf("%w: reputation %d below validation floor %d",
			errs.ErrPrecondition, profile.TotalReputation, s.params.MinValidationReputation)
	}

	s.locks.Lock("evidence:" + id.Hex())
	defer s.locks.Unlock("evidence:" + id.Hex())

	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != StatusPending && item.Status != StatusUnderReview {
		return nil, fmt.Errorf("%w: evidence is %s, validation closed", errs.ErrPrecondition, item.Status)
	}
	if item.Submitter == reviewer {
		return nil, fmt.Errorf("%w: submitter cannot validate own evidence", errs.ErrPrecondition)
	}
	if s.now().After(item.SubmittedAt.Add(s.params.ValidationTimeout)) {
		return nil, fmt.Errorf("%w: validation window closed", errs.ErrPrecondition)
	}

	v := Validation{
		Validator: reviewer,
		Positive:  positive,
		Reason:    req.Reason,
		Level:     level,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendValidation(ctx, id, v); err != nil {
		return nil, err
	}

	item, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(item.Validations) >= s.params.MinValidationsRequired {
		if err := s.finalize(ctx, item, reviewer); err != nil {
			return nil, err
		}
		return s.store.Get(ctx, id)
	}
	return item, nil
}

// Annotate attaches classifier/admin metadata verbatim.
func (s *Service) Annotate(ctx context.Context, id primitive.ObjectID, req *AnnotateRequest) (*Item, error) {
	source := req.Source
	if source == "" {
		source = "admin"
	}

	a := Annotation{
		Key:       req.Key,
		Value:     req.Value,
		Source:    source,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendAnnotation(ctx, id, a); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeAdminAction, id.Hex(), "admin", map[string]interface{}{
		"action": "evidence_annotate",
		"key":    req.Key,
	})
	return s.store.Get(ctx, id)
}

// finalize settles an item at quorum: positive majority validates,
// ties and negative majorities reject. Reviewers on the winning side
// gain a point of base reputation. Caller holds the item lock.
func (s *Service) finalize(ctx context.Context, item *Item, actor string) error {
	validated := item.PositiveCount > item.NegativeCount

	status := StatusRejected
	if validated {
		status = StatusValidated
	}

	// Record the deepest level of scrutiny any reviewer applied.
	level := item.ValidationLevel
	for _, v := range item.Validations {
		if levelRank(v.Level) > levelRank(level) {
			level = v.Level
		}
	}

	if err := s.store.Finalize(ctx, item.ID, status, level); err != nil {
		return err
	}

	for _, v := range item.Validations {
		if v.Positive == validated {
			if err := s.reputation.AdjustBase(ctx, v.Validator, 1, true); err != nil {
				logger.Error("evidence: adjusting reputation for %s: %v", v.Validator, err)
			}
		}
	}

	eventType := events.TypeEvidenceRejected
	if validated {
		eventType = events.TypeEvidenceValidated
	}
	s.events.Publish(ctx, eventType, item.ID.Hex(), actor, map[string]interface{}{
		"positiveCount": item.PositiveCount,
		"negativeCount": item.NegativeCount,
		"contentHash":   item.ContentHash,
	})
	return nil
}

func levelRank(level string) int {
	switch level {
	case LevelThorough:
		return 2
	case LevelStandard:
		return 1
	default:
		return 0
	}
}
