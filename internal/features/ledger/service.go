package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/pkg/locks"
	"github.com/phishguard/phishguard-api/internal/pkg/logger"
	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Store is the persistence surface the service needs. *Repository is the
// mongo implementation; tests use an in-memory fake.
type Store interface {
	EnsureAccount(ctx context.Context, address string) (*Account, error)
	Account(ctx context.Context, address string) (*Account, error)
	CreditSpendable(ctx context.Context, address string, amount int64) error
	DebitSpendable(ctx context.Context, address string, amount int64) error
	MoveSpendableToLocked(ctx context.Context, address string, amount int64) error
	ReleaseLocked(ctx context.Context, address string, lockedAmount, spendableCredit int64) error
	DebitLocked(ctx context.Context, address string, amount int64) error
	InsertStake(ctx context.Context, stake *Stake) error
	Stake(ctx context.Context, id string) (*Stake, error)
	DeactivateStake(ctx context.Context, id string, penalty int64) error
	ActiveStakesByOwner(ctx context.Context, owner string) ([]Stake, error)
	StakesByOwner(ctx context.Context, owner string, offset, limit int) ([]Stake, int64, error)
	AdjustPool(ctx context.Context, delta int64) error
	PoolBalance(ctx context.Context) (int64, error)
	Totals(ctx context.Context) (spendable, locked int64, err error)
}

// EventSink receives one event per balance-moving transition.
type EventSink interface {
	Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{})
}

// Service implements the ledger operations: deposit, lock, unlock,
// transfer, credit. Multi-step sequences serialize on a per-account keyed
// lock; individual balance mutations are additionally guarded at the
// store so a lost race fails instead of corrupting a balance.
type Service struct {
	store      Store
	locks      *locks.Keyed
	events     EventSink
	penaltyBps int64
	lockPeriod time.Duration
}

func NewService(store Store, sink EventSink, penaltyBps int64, lockPeriod time.Duration) *Service {
	return &Service{
		store:      store,
		locks:      locks.NewKeyed(),
		events:     sink,
		penaltyBps: penaltyBps,
		lockPeriod: lockPeriod,
	}
}

// AccountOf returns the account, creating it lazily.
func (s *Service) AccountOf(ctx context.Context, address string) (*Account, error) {
	return s.store.EnsureAccount(ctx, address)
}

// Deposit credits external funds into an account.
func (s *Service) Deposit(ctx context.Context, address string, amount int64) (*Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", errs.ErrValidation)
	}

	if err := s.store.CreditSpendable(ctx, address, amount); err != nil {
		return nil, err
	}
	return s.store.Account(ctx, address)
}

// Transfer moves spendable funds between two accounts atomically: the
// debit is guarded, and the credit cannot fail on balance.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", errs.ErrValidation)
	}
	if from == to {
		return fmt.Errorf("%w: cannot transfer to self", errs.ErrValidation)
	}

	// Lock both accounts in a stable order.
	keys := []string{"acct:" + from, "acct:" + to}
	sort.Strings(keys)
	for _, k := range keys {
		s.locks.Lock(k)
	}
	defer func() {
		for _, k := range keys {
			s.locks.Unlock(k)
		}
	}()

	if _, err := s.store.EnsureAccount(ctx, to); err != nil {
		return err
	}
	if err := s.store.DebitSpendable(ctx, from, amount); err != nil {
		return err
	}
	return s.store.CreditSpendable(ctx, to, amount)
}

// LockStake moves amount from the owner's spendable balance into a new
// active stake of the given kind.
func (s *Service) LockStake(ctx context.Context, owner string, amount int64, kind StakeKind) (*Stake, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: stake amount must be positive", errs.ErrValidation)
	}

	key := "acct:" + owner
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if _, err := s.store.EnsureAccount(ctx, owner); err != nil {
		return nil, err
	}
	if err := s.store.MoveSpendableToLocked(ctx, owner, amount); err != nil {
		return nil, err
	}

	stake := &Stake{
		ID:         uuid.NewString(),
		Owner:      owner,
		Amount:     amount,
		Kind:       kind,
		Multiplier: kind.Multiplier(),
		Active:     true,
		LockPeriod: s.lockPeriod,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertStake(ctx, stake); err != nil {
		// Undo the balance move so the failed operation has no effect.
		if rbErr := s.store.ReleaseLocked(ctx, owner, amount, amount); rbErr != nil {
			logger.Error("ledger: rollback of lock for %s failed: %v", owner, rbErr)
		}
		return nil, err
	}

	s.events.Publish(ctx, events.TypeStakeLocked, stake.ID, owner, map[string]interface{}{
		"amount": amount,
		"kind":   string(kind),
	})
	return stake, nil
}

// ReleaseStake returns a stake in full to its owner. This is the
// settlement path: lock periods do not apply, no penalty is taken.
func (s *Service) ReleaseStake(ctx context.Context, stakeID string) (int64, error) {
	stake, err := s.store.Stake(ctx, stakeID)
	if err != nil {
		return 0, err
	}

	key := "acct:" + stake.Owner
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.store.DeactivateStake(ctx, stakeID, 0); err != nil {
		return 0, err
	}
	if err := s.store.ReleaseLocked(ctx, stake.Owner, stake.Amount, stake.Amount); err != nil {
		return 0, err
	}

	s.events.Publish(ctx, events.TypeStakeReleased, stakeID, stake.Owner, map[string]interface{}{
		"amount": stake.Amount,
	})
	return stake.Amount, nil
}

// Withdraw returns an active stake to its owner on request. Withdrawing
// before the lock period elapses costs a penalty (basis points) that is
// credited to the shared reward pool.
func (s *Service) Withdraw(ctx context.Context, owner, stakeID string) (int64, error) {
	stake, err := s.store.Stake(ctx, stakeID)
	if err != nil {
		return 0, err
	}
	if stake.Owner != owner {
		return 0, fmt.Errorf("%w: stake belongs to another account", errs.ErrForbidden)
	}
	if !stake.Active {
		return 0, fmt.Errorf("%w: stake %s is not active", errs.ErrPrecondition, stakeID)
	}

	key := "acct:" + owner
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var penalty int64
	if time.Now().Before(stake.CreatedAt.Add(stake.LockPeriod)) {
		penalty = stake.Amount * s.penaltyBps / 10000
	}
	returned := stake.Amount - penalty

	if err := s.store.DeactivateStake(ctx, stakeID, penalty); err != nil {
		return 0, err
	}
	if err := s.store.ReleaseLocked(ctx, owner, stake.Amount, returned); err != nil {
		return 0, err
	}
	if penalty > 0 {
		if err := s.store.AdjustPool(ctx, penalty); err != nil {
			return 0, err
		}
	}

	s.events.Publish(ctx, events.TypeStakeReleased, stakeID, owner, map[string]interface{}{
		"amount":   stake.Amount,
		"returned": returned,
		"penalty":  penalty,
	})
	return returned, nil
}

// ForfeitStake deactivates a stake and removes its amount from the
// owner's locked balance. The caller decides where the forfeited value
// goes (slash split, pool).
func (s *Service) ForfeitStake(ctx context.Context, stakeID string) (int64, error) {
	stake, err := s.store.Stake(ctx, stakeID)
	if err != nil {
		return 0, err
	}

	key := "acct:" + stake.Owner
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.store.DeactivateStake(ctx, stakeID, stake.Amount); err != nil {
		return 0, err
	}
	if err := s.store.DebitLocked(ctx, stake.Owner, stake.Amount); err != nil {
		return 0, err
	}

	s.events.Publish(ctx, events.TypeStakeForfeited, stakeID, stake.Owner, map[string]interface{}{
		"amount": stake.Amount,
	})
	return stake.Amount, nil
}

// Credit adds already-accounted-for value (slash proceeds, admin refunds)
// to an account's spendable balance.
func (s *Service) Credit(ctx context.Context, address string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", errs.ErrValidation)
	}
	return s.store.CreditSpendable(ctx, address, amount)
}

// PayReward moves amount from the reward pool into an account.
func (s *Service) PayReward(ctx context.Context, address string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := s.store.AdjustPool(ctx, -amount); err != nil {
		return err
	}
	return s.store.CreditSpendable(ctx, address, amount)
}

// PoolCredit adds value to the reward pool (split remainders, penalties
// routed by callers).
func (s *Service) PoolCredit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return s.store.AdjustPool(ctx, amount)
}

// PoolBalance returns the reward pool balance.
func (s *Service) PoolBalance(ctx context.Context) (int64, error) {
	return s.store.PoolBalance(ctx)
}

// StakeByID returns a stake by id.
func (s *Service) StakeByID(ctx context.Context, id string) (*Stake, error) {
	return s.store.Stake(ctx, id)
}

// ActiveStakes returns the owner's active stakes.
func (s *Service) ActiveStakes(ctx context.Context, owner string) ([]Stake, error) {
	return s.store.ActiveStakesByOwner(ctx, owner)
}

// Stakes returns the owner's stake history, newest first.
func (s *Service) Stakes(ctx context.Context, owner string, offset, limit int) ([]Stake, int64, error) {
	return s.store.StakesByOwner(ctx, owner, offset, limit)
}

// Snapshot reports total value held by the engine for the conservation
// invariant.
func (s *Service) Snapshot(ctx context.Context) (*Conservation, error) {
	spendable, locked, err := s.store.Totals(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := s.store.PoolBalance(ctx)
	if err != nil {
		return nil, err
	}
	return &Conservation{
		Spendable: spendable,
		Locked:    locked,
		Pool:      pool,
		Total:     spendable + locked + pool,
	}, nil
}
