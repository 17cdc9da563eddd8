package reputation

import (
	"context"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/features/ledger"
	"github.com/phishguard/phishguard-api/internal/pkg/locks"
)

// Store is the persistence surface the service needs.
type Store interface {
	Ensure(ctx context.Context, address string) (*Profile, error)
	Get(ctx context.Context, address string) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
	IncCounter(ctx context.Context, address, field string) error
	Top(ctx context.Context, limit int) ([]Profile, error)
}

// StakeSource exposes the per-account stake index used to derive staked
// reputation. Implemented by the ledger service.
type StakeSource interface {
	ActiveStakes(ctx context.Context, owner string) ([]ledger.Stake, error)
}

// EventSink receives tier-change notifications.
type EventSink interface {
	Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{})
}

// Service derives tiers and multiplier-weighted reputation from base
// reputation plus active stakes. All mutation goes through AdjustBase or
// Recompute under a per-account lock so counters and derived fields never
// drift apart.
type Service struct {
	store  Store
	stakes StakeSource
	events EventSink
	locks  *locks.Keyed
}

func NewService(store Store, stakes StakeSource, sink EventSink) *Service {
	return &Service{
		store:  store,
		stakes: stakes,
		events: sink,
		locks:  locks.NewKeyed(),
	}
}

// ProfileOf returns the account's profile, creating it lazily.
func (s *Service) ProfileOf(ctx context.Context, address string) (*Profile, error) {
	return s.store.Ensure(ctx, address)
}

// stakedReputation derives reputation points from active stakes: each
// stake contributes amount x kind multiplier (multiplier is scaled by
// 100, so a 1.5x report stake of 10 yields 15 points).
func stakedReputation(stakes []ledger.Stake) int64 {
	var total int64
	for _, st := range stakes {
		total += st.Amount * st.Multiplier / 100
	}
	return total
}

// refresh recomputes the derived fields on profile and emits a tier
// change event if the boundary was crossed. Caller holds the lock.
func (s *Service) refresh(ctx context.Context, profile *Profile) error {
	active, err := s.stakes.ActiveStakes(ctx, profile.Address)
	if err != nil {
		return err
	}

	oldTier := profile.Tier
	profile.StakedReputation = stakedReputation(active)
	profile.TotalReputation = profile.BaseReputation + profile.StakedReputation
	profile.Tier = TierFor(profile.TotalReputation)

	if err := s.store.Save(ctx, profile); err != nil {
		return err
	}

	if oldTier != profile.Tier {
		s.events.Publish(ctx, events.TypeTierChanged, profile.Address, profile.Address, map[string]interface{}{
			"from":  oldTier,
			"to":    profile.Tier,
			"total": profile.TotalReputation,
		})
	}
	return nil
}

// AdjustBase adds delta to base reputation (floored at zero), updates the
// correct/false counters, and recomputes staked reputation, total and
// tier.
func (s *Service) AdjustBase(ctx context.Context, address string, delta int64, correct bool) error {
	key := "rep:" + address
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	profile, err := s.store.Ensure(ctx, address)
	if err != nil {
		return err
	}

	profile.BaseReputation += delta
	if profile.BaseReputation < 0 {
		profile.BaseReputation = 0
	}
	if correct {
		profile.CorrectVotes++
	} else {
		profile.FalseReports++
	}

	return s.refresh(ctx, profile)
}

// Recompute refreshes derived fields after a stake change without
// touching base reputation or counters.
func (s *Service) Recompute(ctx context.Context, address string) error {
	key := "rep:" + address
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	profile, err := s.store.Ensure(ctx, address)
	if err != nil {
		return err
	}
	return s.refresh(ctx, profile)
}

// RecordSubmission bumps the reports-submitted counter.
func (s *Service) RecordSubmission(ctx context.Context, address string) error {
	if _, err := s.store.Ensure(ctx, address); err != nil {
		return err
	}
	return s.store.IncCounter(ctx, address, "reportsSubmitted")
}

// RecordVoteCast bumps the votes-cast counter.
func (s *Service) RecordVoteCast(ctx context.Context, address string) error {
	if _, err := s.store.Ensure(ctx, address); err != nil {
		return err
	}
	return s.store.IncCounter(ctx, address, "votesCast")
}

// RecordSlashing bumps the slashing counter.
func (s *Service) RecordSlashing(ctx context.Context, address string) error {
	if _, err := s.store.Ensure(ctx, address); err != nil {
		return err
	}
	return s.store.IncCounter(ctx, address, "slashingCount")
}

// Override force-sets base reputation (admin emergency path) and
// recomputes derived fields.
func (s *Service) Override(ctx context.Context, address string, base int64) (*Profile, error) {
	key := "rep:" + address
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	profile, err := s.store.Ensure(ctx, address)
	if err != nil {
		return nil, err
	}

	profile.BaseReputation = base
	if err := s.refresh(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Leaderboard returns the top profiles by total reputation.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Profile, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.store.Top(ctx, limit)
}
