package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WindowAccounting(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()
	window := time.Minute

	var firstReset time.Time
	for i := int64(1); i <= 12; i++ {
		count, resetTime, err := store.Increment(ctx, "rate-limit:203.0.113.9", window)
		require.NoError(t, err)
		assert.Equal(t, i, count)

		if i == 1 {
			firstReset = resetTime
		} else {
			// Denied or not, the window boundary never moves.
			assert.Equal(t, firstReset, resetTime)
		}
	}
}

func TestMemoryStore_WindowReset(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()

	current := time.Now()
	store.now = func() time.Time { return current }

	ctx := context.Background()

	count, _, err := store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, _, err = store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	current = current.Add(time.Minute + time.Millisecond)

	count, resetTime, err := store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired window should restart counting")
	assert.Equal(t, current.Add(time.Minute), resetTime)
}

func TestMemoryStore_IdentifierIsolation(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := store.Increment(ctx, "rate-limit:10.0.0.1", time.Minute)
		require.NoError(t, err)
	}

	count, _, err := store.Increment(ctx, "rate-limit:10.0.0.2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "identifiers must not share counters")
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()

	current := time.Now()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	_, _, err := store.Increment(ctx, "stale", time.Minute)
	require.NoError(t, err)
	_, _, err = store.Increment(ctx, "fresh", time.Hour)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	store.sweep()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.entries, "stale")
	assert.Contains(t, store.entries, "fresh")
}

func TestMemoryStore_Concurrency(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Stop()

	ctx := context.Background()

	var wg sync.WaitGroup
	const goroutines = 20
	const perGoroutine = 50

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_, _, err := store.Increment(ctx, "shared", time.Minute)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	count, _, err := store.Increment(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGoroutine+1), count)
}

func TestMemoryStore_StopIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Stop()
	store.Stop()
}
