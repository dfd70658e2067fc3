package memory

/*
				Calliper Storage Adapter - In-Memory Stores
	ScoreStore and ProfileStore keep everything in process-local maps guarded
	by RW mutexes. The leaderboard is sorted on demand; at the sizes these
	deployments run at that beats maintaining an index.
*/

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calliperhq/calliper/internal/core/domain"
)

type ScoreStore struct {
	mu     sync.RWMutex
	scores map[string]domain.Score

	now func() time.Time
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		scores: make(map[string]domain.Score),
		now:    time.Now,
	}
}

func (s *ScoreStore) Best(ctx context.Context, userID string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, found := s.scores[userID]
	if !found {
		return 0, false, nil
	}
	return score.BestScore, true, nil
}

// SaveBest keeps the lower of the stored and submitted scores.
func (s *ScoreStore) SaveBest(ctx context.Context, userID string, score float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.scores[userID]
	if found && existing.BestScore <= score {
		return false, nil
	}

	record := domain.Score{
		ID:        existing.ID,
		UserID:    userID,
		BestScore: score,
		UpdatedAt: s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.scores[userID] = record

	return true, nil
}

func (s *ScoreStore) Leaderboard(ctx context.Context, limit int) ([]domain.Score, error) {
	s.mu.RLock()
	ranked := make([]domain.Score, 0, len(s.scores))
	for _, score := range s.scores {
		ranked = append(ranked, score)
	}
	s.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].BestScore != ranked[j].BestScore {
			return ranked[i].BestScore < ranked[j].BestScore
		}
		// Stable order for ties so ranks do not flap between requests.
		return ranked[i].UpdatedAt.Before(ranked[j].UpdatedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]domain.Profile),
	}
}

func (p *ProfileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, found := p.profiles[userID]
	if !found {
		return domain.Profile{}, domain.ErrNotFound
	}
	return profile, nil
}

func (p *ProfileStore) Upsert(ctx context.Context, profile domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for userID, existing := range p.profiles {
		if userID != profile.UserID && strings.EqualFold(existing.Username, profile.Username) {
			return domain.ErrUsernameTaken
		}
	}

	p.profiles[profile.UserID] = profile
	return nil
}

func (p *ProfileStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, profile := range p.profiles {
		if strings.EqualFold(profile.Username, username) {
			return true, nil
		}
	}
	return false, nil
}
