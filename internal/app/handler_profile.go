package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/calliperhq/calliper/internal/core/domain"
	"github.com/calliperhq/calliper/internal/sanitize"
	"github.com/calliperhq/calliper/internal/validate"
)

type profileResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	UpdatedAt string `json:"updated_at"`
}

func toProfileResponse(profile domain.Profile) profileResponse {
	return profileResponse{
		UserID:    profile.UserID,
		Username:  profile.Username,
		UpdatedAt: profile.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *Application) handleGetProfile(w http.ResponseWriter, r *http.Request) {
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

	profile, err := a.profiles.Get(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeSecure(w, http.StatusNotFound, map[string]string{"error": "Profile not found"}, check)
			return
		}
		a.logger.Error("Profile lookup failed", "error", err, "user_id", account.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSecure(w, http.StatusOK, toProfileResponse(profile), check)
}

func (a *Application) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
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

	raw, ok := stringField(check.SanitizedBody, "username")
	if !ok || raw == "" {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Username is required"}, check)
		return
	}

	username := sanitize.Username(raw)
	if result := validate.Username(username); !result.Valid {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": result.Reason}, check)
		return
	}

	profile := domain.Profile{
		UserID:    account.ID,
		Username:  username,
		UpdatedAt: time.Now(),
	}

	if err := a.profiles.Upsert(r.Context(), profile); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			writeSecure(w, http.StatusConflict, map[string]string{"error": "This username is not available"}, check)
			return
		}
		a.logger.Error("Profile update failed", "error", err, "user_id", account.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSecure(w, http.StatusOK, toProfileResponse(profile), check)
}
