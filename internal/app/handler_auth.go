package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/calliperhq/calliper/internal/core/constants"
	"github.com/calliperhq/calliper/internal/core/domain"
	"github.com/calliperhq/calliper/internal/sanitize"
	"github.com/calliperhq/calliper/internal/validate"
)

// requirePasswordComplexity demands upper, lower and digit in new passwords.
const requirePasswordComplexity = true

func (a *Application) handleRegister(w http.ResponseWriter, r *http.Request) {
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

	emailInput, ok := stringField(check.SanitizedBody, "email")
	if !ok || emailInput == "" {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Email is required"}, check)
		return
	}
	password, ok := stringField(check.SanitizedBody, "password")
	if !ok || password == "" {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Password is required"}, check)
		return
	}

	email := sanitize.Email(emailInput)
	if result := validate.Email(email); !result.Valid {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": result.Reason}, check)
		return
	}
	if result := validate.Password(password, requirePasswordComplexity); !result.Valid {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": result.Reason}, check)
		return
	}

	// Username is optional at registration; it can be claimed later through
	// the profile endpoint.
	var username string
	if raw, found := stringField(check.SanitizedBody, "username"); found && raw != "" {
		username = sanitize.Username(raw)
		if result := validate.Username(username); !result.Valid {
			writeSecure(w, http.StatusBadRequest, map[string]string{"error": result.Reason}, check)
			return
		}
		taken, terr := a.profiles.UsernameTaken(r.Context(), username)
		if terr != nil {
			a.logger.Error("Username lookup failed", "error", terr)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if taken {
			writeSecure(w, http.StatusConflict, map[string]string{"error": "This username is not available"}, check)
			return
		}
	}

	account, err := a.identity.CreateAccount(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			writeSecure(w, http.StatusConflict, map[string]string{"error": "Email already registered"}, check)
			return
		}
		a.logger.Error("Account creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if username != "" {
		if err := a.profiles.Upsert(r.Context(), domain.Profile{
			UserID:    account.ID,
			Username:  username,
			UpdatedAt: time.Now(),
		}); err != nil {
			a.logger.Error("Profile creation failed", "error", err, "user_id", account.ID)
		}
	}

	a.logger.InfoWithEndpoint("Account registered", r.URL.Path, "user_id", account.ID)

	writeSecure(w, http.StatusCreated, map[string]any{
		"user_id":               account.ID,
		"email":                 account.Email,
		"verification_required": true,
	}, check)
}

func (a *Application) handleLogin(w http.ResponseWriter, r *http.Request) {
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

	emailInput, ok := stringField(check.SanitizedBody, "email")
	password, pok := stringField(check.SanitizedBody, "password")
	if !ok || !pok || emailInput == "" || password == "" {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Email and password are required"}, check)
		return
	}

	session, err := a.identity.SignIn(r.Context(), sanitize.Email(emailInput), password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			// One message for bad email and bad password alike.
			writeSecure(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"}, check)
		case errors.Is(err, domain.ErrNotVerified):
			writeSecure(w, http.StatusForbidden, map[string]string{"error": "Email not verified"}, check)
		default:
			a.logger.Error("Sign-in failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSecure(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	}, check)
}

func (a *Application) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
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

	token, ok := stringField(check.SanitizedBody, "token")
	if !ok || token == "" {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Verification token is required"}, check)
		return
	}

	if err := a.identity.VerifyEmail(r.Context(), sanitize.String(token)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Invalid or expired verification token"}, check)
			return
		}
		a.logger.Error("Email verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSecure(w, http.StatusOK, map[string]bool{"verified": true}, check)
}

// authenticate resolves the bearer token on r to an account. Every failure
// mode collapses into one error so responses stay uniform.
func (a *Application) authenticate(r *http.Request) (domain.Account, error) {
	header := r.Header.Get(constants.HeaderAuthorization)
	if !strings.HasPrefix(header, constants.BearerTokenPrefix) {
		return domain.Account{}, domain.ErrSessionExpired
	}

	token := strings.TrimPrefix(header, constants.BearerTokenPrefix)
	return a.identity.ValidateSession(r.Context(), token)
}
