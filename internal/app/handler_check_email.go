package app

import (
	"net/http"

	"github.com/calliperhq/calliper/internal/sanitize"
	"github.com/calliperhq/calliper/internal/validate"
)

// handleCheckEmail reports whether an email is already registered. It is the
// one endpoint allowed to reveal existence, which is why it runs behind the
// stricter gateway.
func (a *Application) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	check, err := a.security.CheckEmail.Admit(r)
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
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": "Email is required and must be a valid string"}, check)
		return
	}

	email := sanitize.Email(emailInput)
	if result := validate.Email(email); !result.Valid {
		writeSecure(w, http.StatusBadRequest, map[string]string{"error": result.Reason}, check)
		return
	}

	exists, err := a.identity.EmailExists(r.Context(), email)
	if err != nil {
		a.logger.Error("Error checking email", "error", err)
		writeError(w, http.StatusInternalServerError, "Error checking email")
		return
	}

	writeSecure(w, http.StatusOK, map[string]bool{"exists": exists}, check)
}
