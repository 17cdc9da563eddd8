package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllow_EnforcesLimit(t *testing.T) {
	rl := New(3, time.Minute)

	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"))

	// Independent keys have independent budgets.
	require.True(t, rl.Allow("bob"))
}

func TestAllow_WindowSlides(t *testing.T) {
	now := time.Now()
	rl := New(2, time.Minute)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"))

	now = now.Add(61 * time.Second)
	require.True(t, rl.Allow("alice"))
}

func TestRemaining(t *testing.T) {
	rl := New(3, time.Minute)

	require.Equal(t, 3, rl.Remaining("alice"))
	rl.Allow("alice")
	require.Equal(t, 2, rl.Remaining("alice"))
	rl.Allow("alice")
	rl.Allow("alice")
	rl.Allow("alice")
	require.Equal(t, 0, rl.Remaining("alice"))
}

func TestReset(t *testing.T) {
	rl := New(1, time.Minute)

	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"))
	rl.Reset("alice")
	require.True(t, rl.Allow("alice"))
}

func TestCleanup_DropsExpiredKeys(t *testing.T) {
	now := time.Now()
	rl := New(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("alice")
	now = now.Add(2 * time.Minute)
	rl.Cleanup()

	rl.mu.Lock()
	_, exists := rl.requests["alice"]
	rl.mu.Unlock()
	require.False(t, exists)
}
