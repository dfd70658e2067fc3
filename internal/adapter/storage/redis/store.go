package redis

/*
				Calliper Storage Adapter - Redis Stores
	ScoreStore keeps the leaderboard in a sorted set so ranking is native:
	members are user IDs, the set score is the best measuring error, and
	ZADD LT gives the keep-the-lower-score rule atomically. ProfileStore is
	plain hashes plus a reverse index for username uniqueness.
*/

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/calliperhq/calliper/internal/core/domain"
)

const (
	leaderboardKey   = "calliper:leaderboard"
	scoreMetaPrefix  = "calliper:score:"
	profilePrefix    = "calliper:profile:"
	usernameIndexKey = "calliper:usernames"
)

type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Best(ctx context.Context, userID string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, leaderboardKey, userID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (s *ScoreStore) SaveBest(ctx context.Context, userID string, score float64) (bool, error) {
	// LT only touches the member when the new score is strictly lower; CH
	// reports whether anything changed.
	changed, err := s.client.ZAddArgs(ctx, leaderboardKey, redis.ZAddArgs{
		LT: true,
		Ch: true,
		Members: []redis.Z{
			{Score: score, Member: userID},
		},
	}).Result()
	if err != nil {
		return false, err
	}
	if changed == 0 {
		return false, nil
	}

	err = s.client.HSet(ctx, scoreMetaPrefix+userID,
		"id", uuid.NewString(),
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *ScoreStore) Leaderboard(ctx context.Context, limit int) ([]domain.Score, error) {
	if limit <= 0 {
		limit = 10
	}

	// Ascending range: the sorted set orders by score, lowest error first.
	members, err := s.client.ZRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.Score, 0, len(members))
	for _, member := range members {
		userID, _ := member.Member.(string)
		score := domain.Score{
			UserID:    userID,
			BestScore: member.Score,
		}

		meta, err := s.client.HGetAll(ctx, scoreMetaPrefix+userID).Result()
		if err != nil {
			return nil, err
		}
		score.ID = meta["id"]
		if raw, found := meta["updated_at"]; found {
			if parsed, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				score.UpdatedAt = parsed
			}
		}

		ranked = append(ranked, score)
	}

	return ranked, nil
}

type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (p *ProfileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	fields, err := p.client.HGetAll(ctx, profilePrefix+userID).Result()
	if err != nil {
		return domain.Profile{}, err
	}
	if len(fields) == 0 {
		return domain.Profile{}, domain.ErrNotFound
	}

	profile := domain.Profile{
		UserID:   userID,
		Username: fields["username"],
	}
	if raw, found := fields["updated_at"]; found {
		if parsed, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			profile.UpdatedAt = parsed
		}
	}

	return profile, nil
}

func (p *ProfileStore) Upsert(ctx context.Context, profile domain.Profile) error {
	indexKey := strings.ToLower(profile.Username)

	owner, err := p.client.HGet(ctx, usernameIndexKey, indexKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil && owner != profile.UserID {
		return domain.ErrUsernameTaken
	}

	// Drop the old reverse-index entry when the user renames themselves.
	existing, err := p.Get(ctx, profile.UserID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	if err == nil && !strings.EqualFold(existing.Username, profile.Username) {
		if herr := p.client.HDel(ctx, usernameIndexKey, strings.ToLower(existing.Username)).Err(); herr != nil {
			return herr
		}
	}

	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, profilePrefix+profile.UserID,
		"username", profile.Username,
		"updated_at", updatedAt.Format(time.RFC3339Nano),
	)
	pipe.HSet(ctx, usernameIndexKey, indexKey, profile.UserID)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *ProfileStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	taken, err := p.client.HExists(ctx, usernameIndexKey, strings.ToLower(username)).Result()
	if err != nil {
		return false, err
	}
	return taken, nil
}
