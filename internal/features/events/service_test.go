package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	seq     int64
	events  []Event
	failing bool
}

func (f *fakeStore) NextSeq(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errors.New("counter unavailable")
	}
	f.seq++
	return f.seq, nil
}

func (f *fakeStore) Insert(_ context.Context, event *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("insert failed")
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) ListAfter(_ context.Context, after int64, eventType string, limit int) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.events {
		if e.Seq <= after {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func TestPublish_AssignsOrderedSeq(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	ctx := context.Background()

	svc.Publish(ctx, TypeReportSubmitted, "r1", "alice", nil)
	svc.Publish(ctx, TypeReportVote, "r1", "v1", map[string]interface{}{"verdict": "valid"})
	svc.Publish(ctx, TypeReportValidated, "r1", "v3", nil)

	require.Len(t, store.events, 3)
	for i, e := range store.events {
		require.Equal(t, int64(i+1), e.Seq)
		require.NotEmpty(t, e.ID)
	}
}

func TestPublish_StoreFailureDoesNotPanic(t *testing.T) {
	store := &fakeStore{failing: true}
	svc := NewService(store)

	// A broken stream must never abort a settled engine operation.
	require.NotPanics(t, func() {
		svc.Publish(context.Background(), TypeStakeLocked, "s1", "alice", nil)
	})
	require.Empty(t, store.events)
}

func TestList_FiltersAndClamps(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Publish(ctx, TypeReportVote, "r1", "v", nil)
	}
	svc.Publish(ctx, TypeReportValidated, "r1", "v", nil)

	got, err := svc.List(ctx, ListQuery{After: 0, Type: TypeReportValidated, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.List(ctx, ListQuery{After: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)

	got, err = svc.List(ctx, ListQuery{After: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
}
