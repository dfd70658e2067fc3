package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/calliperhq/calliper/internal/core/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100

	// shown when a ranked user has not picked a username yet
	anonymousUsername = "anonymous"
)

func (a *Application) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	check, err := a.security.Default.Admit(r)
	if err != nil {
		a.logger.ErrorWithEndpoint("Security check failed", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !check.Valid {
		writeRejection(w, check)
		return
	}

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, perr := strconv.Atoi(raw)
		if perr != nil || parsed < 1 {
			writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Limit must be a positive integer"}, check)
			return
		}
		if parsed > maxLeaderboardLimit {
			parsed = maxLeaderboardLimit
		}
		limit = parsed
	}

	ranked, err := a.scores.Leaderboard(r.Context(), limit)
	if err != nil {
		a.logger.Error("Leaderboard lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, score := range ranked {
		entry := domain.LeaderboardEntry{
			UserID:    score.UserID,
			Username:  anonymousUsername,
			BestScore: score.BestScore,
			Rank:      i + 1,
		}

		profile, perr := a.profiles.Get(r.Context(), score.UserID)
		switch {
		case perr == nil:
			entry.Username = profile.Username
		case errors.Is(perr, domain.ErrNotFound):
			// keep the placeholder
		default:
			a.logger.Error("Profile lookup failed", "error", perr, "user_id", score.UserID)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		entries = append(entries, entry)
	}

	writeSecure(w, http.StatusOK, map[string]any{"entries": entries}, check)
}
