package ports

import (
	"context"

	"github.com/calliperhq/calliper/internal/core/domain"
)

// ScoreStore persists one best score per user. Lower is better; SaveBest
// must only overwrite when the new score improves on the stored one.
type ScoreStore interface {
	Best(ctx context.Context, userID string) (float64, bool, error)
	SaveBest(ctx context.Context, userID string, score float64) (improved bool, err error)
	Leaderboard(ctx context.Context, limit int) ([]domain.Score, error)
}

// ProfileStore is simple row access keyed by user ID.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Upsert(ctx context.Context, profile domain.Profile) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
}
