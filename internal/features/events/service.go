package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phishguard/phishguard-api/internal/pkg/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	NextSeq(ctx context.Context) (int64, error)
	Insert(ctx context.Context, event *Event) error
	ListAfter(ctx context.Context, after int64, eventType string, limit int) ([]Event, error)
}

// Service appends ordered events to the notification stream. A failed
// append is logged but never propagated: downstream mirroring must not
// be able to abort an already-settled engine operation.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Publish appends one event for a state transition.
func (s *Service) Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{}) {
	seq, err := s.store.NextSeq(ctx)
	if err != nil {
		logger.Error("events: allocating seq for %s on %s: %v", eventType, subjectID, err)
		return
	}

	event := &Event{
		ID:        uuid.NewString(),
		Seq:       seq,
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if err := s.store.Insert(ctx, event); err != nil {
		logger.Error("events: appending %s on %s: %v", eventType, subjectID, err)
	}
}

// List returns events after the given sequence number, oldest first.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Event, error) {
	limit := query.Limit
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.store.ListAfter(ctx, query.After, query.Type, limit)
}
