package memory

import (
	"context"
	"testing"
	"time"

	"github.com/calliperhq/calliper/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreStore_SaveBestKeepsLower(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	_, found, err := store.Best(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	improved, err := store.SaveBest(ctx, "u1", 12.5)
	require.NoError(t, err)
	assert.True(t, improved)

	improved, err = store.SaveBest(ctx, "u1", 20.0)
	require.NoError(t, err)
	assert.False(t, improved, "a worse score never overwrites")

	improved, err = store.SaveBest(ctx, "u1", 12.5)
	require.NoError(t, err)
	assert.False(t, improved, "an equal score is not an improvement")

	improved, err = store.SaveBest(ctx, "u1", 3.1)
	require.NoError(t, err)
	assert.True(t, improved)

	best, found, err := store.Best(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3.1, best)
}

func TestScoreStore_Leaderboard(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}

	_, err := store.SaveBest(ctx, "mid", 10.0)
	require.NoError(t, err)
	_, err = store.SaveBest(ctx, "best", 1.5)
	require.NoError(t, err)
	_, err = store.SaveBest(ctx, "worst", 99.0)
	require.NoError(t, err)
	_, err = store.SaveBest(ctx, "tied", 10.0)
	require.NoError(t, err)

	ranked, err := store.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	assert.Equal(t, "best", ranked[0].UserID)
	assert.Equal(t, "mid", ranked[1].UserID, "earlier submission wins the tie")
	assert.Equal(t, "tied", ranked[2].UserID)
	assert.Equal(t, "worst", ranked[3].UserID)

	top, err := store.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "best", top[0].UserID)
}

func TestProfileStore_Upsert(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Upsert(ctx, domain.Profile{UserID: "u1", Username: "gauge_reader"}))

	profile, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gauge_reader", profile.Username)

	// Renaming yourself is fine.
	require.NoError(t, store.Upsert(ctx, domain.Profile{UserID: "u1", Username: "tape_master"}))

	// Claiming someone else's name is not, regardless of case.
	err = store.Upsert(ctx, domain.Profile{UserID: "u2", Username: "Tape_Master"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	taken, err := store.UsernameTaken(ctx, "TAPE_MASTER")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.UsernameTaken(ctx, "free_name")
	require.NoError(t, err)
	assert.False(t, taken)
}
