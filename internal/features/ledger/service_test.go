package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// fakeStore is an in-memory Store with the same guard semantics as the
// mongo repository: debits fail on insufficient balance, stake
// deactivation is one-shot.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	stakes   map[string]*Stake
	pool     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*Account),
		stakes:   make(map[string]*Stake),
	}
}

func (f *fakeStore) ensure(address string) *Account {
	acct, ok := f.accounts[address]
	if !ok {
		acct = &Account{Address: address, CreatedAt: time.Now()}
		f.accounts[address] = acct
	}
	return acct
}

func (f *fakeStore) EnsureAccount(_ context.Context, address string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.ensure(address)
	copied := *acct
	return &copied, nil
}

func (f *fakeStore) Account(_ context.Context, address string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", errs.ErrNotFound, address)
	}
	copied := *acct
	return &copied, nil
}

func (f *fakeStore) CreditSpendable(_ context.Context, address string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure(address).Spendable += amount
	return nil
}

func (f *fakeStore) DebitSpendable(_ context.Context, address string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.ensure(address)
	if acct.Spendable < amount {
		return fmt.Errorf("%w: insufficient funds", errs.ErrPrecondition)
	}
	acct.Spendable -= amount
	return nil
}

func (f *fakeStore) MoveSpendableToLocked(_ context.Context, address string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.ensure(address)
	if acct.Spendable < amount {
		return fmt.Errorf("%w: insufficient funds", errs.ErrPrecondition)
	}
	acct.Spendable -= amount
	acct.Locked += amount
	return nil
}

func (f *fakeStore) ReleaseLocked(_ context.Context, address string, lockedAmount, spendableCredit int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.ensure(address)
	if acct.Locked < lockedAmount {
		return fmt.Errorf("%w: insufficient locked funds", errs.ErrPrecondition)
	}
	acct.Locked -= lockedAmount
	acct.Spendable += spendableCredit
	return nil
}

func (f *fakeStore) DebitLocked(_ context.Context, address string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.ensure(address)
	if acct.Locked < amount {
		return fmt.Errorf("%w: insufficient locked funds", errs.ErrPrecondition)
	}
	acct.Locked -= amount
	return nil
}

func (f *fakeStore) InsertStake(_ context.Context, stake *Stake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *stake
	f.stakes[stake.ID] = &copied
	return nil
}

func (f *fakeStore) Stake(_ context.Context, id string) (*Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[id]
	if !ok {
		return nil, fmt.Errorf("%w: stake %s", errs.ErrNotFound, id)
	}
	copied := *stake
	return &copied, nil
}

func (f *fakeStore) DeactivateStake(_ context.Context, id string, penalty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[id]
	if !ok {
		return fmt.Errorf("%w: stake %s", errs.ErrNotFound, id)
	}
	if !stake.Active {
		return fmt.Errorf("%w: stake %s is not active", errs.ErrPrecondition, id)
	}
	now := time.Now()
	stake.Active = false
	stake.ReleasedAt = &now
	stake.Penalty = penalty
	return nil
}

func (f *fakeStore) ActiveStakesByOwner(_ context.Context, owner string) ([]Stake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Stake
	for _, stake := range f.stakes {
		if stake.Owner == owner && stake.Active {
			out = append(out, *stake)
		}
	}
	return out, nil
}

func (f *fakeStore) StakesByOwner(_ context.Context, owner string, offset, limit int) ([]Stake, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Stake
	for _, stake := range f.stakes {
		if stake.Owner == owner {
			out = append(out, *stake)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) AdjustPool(_ context.Context, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pool += delta
	return nil
}

func (f *fakeStore) PoolBalance(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pool, nil
}

func (f *fakeStore) Totals(_ context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var spendable, locked int64
	for _, acct := range f.accounts {
		spendable += acct.Spendable
		locked += acct.Locked
	}
	return spendable, locked, nil
}

// backdateStake moves a stake's creation time so lock-period branches
// can be tested without sleeping.
func (f *fakeStore) backdateStake(id string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stakes[id].CreatedAt = f.stakes[id].CreatedAt.Add(-d)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, string, string, string, map[string]interface{}) {}

func newTestService(store *fakeStore) *Service {
	return NewService(store, nopSink{}, 1000, time.Hour)
}

func TestDeposit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	acct, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), acct.Spendable)
	require.Equal(t, int64(0), acct.Locked)

	_, err = svc.Deposit(ctx, "alice", 0)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestLockStake(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)

	stake, err := svc.LockStake(ctx, "alice", 30, KindReport)
	require.NoError(t, err)
	require.True(t, stake.Active)
	require.Equal(t, int64(150), stake.Multiplier)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(70), acct.Spendable)
	require.Equal(t, int64(30), acct.Locked)
}

func TestLockStake_InsufficientFunds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 10)
	require.NoError(t, err)

	_, err = svc.LockStake(ctx, "alice", 11, KindVote)
	require.ErrorIs(t, err, errs.ErrPrecondition)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(10), acct.Spendable)
	require.Equal(t, int64(0), acct.Locked)
}

func TestReleaseStake(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	stake, err := svc.LockStake(ctx, "alice", 40, KindVote)
	require.NoError(t, err)

	returned, err := svc.ReleaseStake(ctx, stake.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), returned)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(100), acct.Spendable)
	require.Equal(t, int64(0), acct.Locked)

	// Releasing again fails: the stake is already settled.
	_, err = svc.ReleaseStake(ctx, stake.ID)
	require.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestWithdraw_EarlyPenalty(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	stake, err := svc.LockStake(ctx, "alice", 100, KindReport)
	require.NoError(t, err)

	// One second short of the lock period: penalty still applies.
	store.backdateStake(stake.ID, time.Hour-time.Second)

	returned, err := svc.Withdraw(ctx, "alice", stake.ID)
	require.NoError(t, err)
	require.Equal(t, int64(90), returned)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(90), acct.Spendable)
	require.Equal(t, int64(0), acct.Locked)

	pool, err := svc.PoolBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), pool)

	got, err := svc.StakeByID(ctx, stake.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, int64(10), got.Penalty)
}

func TestWithdraw_AfterLockPeriod(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	stake, err := svc.LockStake(ctx, "alice", 100, KindReport)
	require.NoError(t, err)

	store.backdateStake(stake.ID, 2*time.Hour)

	returned, err := svc.Withdraw(ctx, "alice", stake.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), returned)

	pool, err := svc.PoolBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), pool)
}

func TestWithdraw_WrongOwner(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	stake, err := svc.LockStake(ctx, "alice", 50, KindReport)
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, "mallory", stake.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestForfeitStake(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)
	stake, err := svc.LockStake(ctx, "alice", 60, KindReport)
	require.NoError(t, err)

	forfeited, err := svc.ForfeitStake(ctx, stake.ID)
	require.NoError(t, err)
	require.Equal(t, int64(60), forfeited)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(40), acct.Spendable)
	require.Equal(t, int64(0), acct.Locked)
}

func TestTransfer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)

	require.NoError(t, svc.Transfer(ctx, "alice", "bob", 30))

	alice, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	bob, err := svc.AccountOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(70), alice.Spendable)
	require.Equal(t, int64(30), bob.Spendable)

	require.ErrorIs(t, svc.Transfer(ctx, "alice", "alice", 10), errs.ErrValidation)
	require.ErrorIs(t, svc.Transfer(ctx, "alice", "bob", 1000), errs.ErrPrecondition)
}

func TestPayReward_DrawsFromPool(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.PayReward(ctx, "alice", 5))

	pool, err := svc.PoolBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(-5), pool)

	acct, err := svc.AccountOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(5), acct.Spendable)
}

func TestConservation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "alice", 200)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, "bob", 50)
	require.NoError(t, err)

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(250), snapshot.Total)

	stake, err := svc.LockStake(ctx, "alice", 120, KindReport)
	require.NoError(t, err)
	require.NoError(t, svc.Transfer(ctx, "bob", "alice", 25))
	store.backdateStake(stake.ID, time.Minute)
	_, err = svc.Withdraw(ctx, "alice", stake.ID)
	require.NoError(t, err)
	require.NoError(t, svc.PayReward(ctx, "bob", 4))

	// Every move after the deposits shuffles value between spendable,
	// locked and the pool; the total is invariant.
	snapshot, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(250), snapshot.Total)
}
