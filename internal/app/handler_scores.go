package app

import (
	"net/http"

	"github.com/calliperhq/calliper/internal/sanitize"
)

// handleSubmitScore records a game result. The score is the absolute
// measuring error, so the stored value only ever goes down.
func (a *Application) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
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

	account, err := a.authenticate(r)
	if err != nil {
		writeSecure(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"}, check)
		return
	}

	score, ok := sanitize.Number(bodyField(check.SanitizedBody, "score"))
	if !ok || score < 0 {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Score must be a non-negative number"}, check)
		return
	}

	improved, err := a.scores.SaveBest(r.Context(), account.ID, score)
	if err != nil {
		a.logger.Error("Score save failed", "error", err, "user_id", account.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	best, _, err := a.scores.Best(r.Context(), account.ID)
	if err != nil {
		a.logger.Error("Score lookup failed", "error", err, "user_id", account.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if improved {
		a.logger.InfoWithEndpoint("New personal best", r.URL.Path, "user_id", account.ID, "best", best)
	}

	writeSecure(w, http.StatusOK, map[string]any{
		"best":     best,
		"improved": improved,
	}, check)
}
