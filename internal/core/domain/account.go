package domain

import "time"

// Account is the identity-provider view of a user. The password never leaves
// the provider; only its hash is stored there.
type Account struct {
	ID            string
	Email         string
	EmailVerified bool
	CreatedAt     time.Time
}

// Session is an opaque bearer credential issued by the identity provider.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Profile is the public face of an account on the leaderboard.
type Profile struct {
	UserID    string
	Username  string
	UpdatedAt time.Time
}

// Score records a user's best (lowest-error) result. BestScore is the
// absolute measuring error in centimetres, so lower is better.
type Score struct {
	ID        string
	UserID    string
	BestScore float64
	UpdatedAt time.Time
}

// LeaderboardEntry joins a score with its profile username for display.
type LeaderboardEntry struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	BestScore float64 `json:"best_score"`
	Rank      int     `json:"rank"`
}
