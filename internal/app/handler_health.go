package app

import (
	"net/http"
	"time"
)

// healthHandler handles health check requests. It runs through the gateway
// like everything else, but with the dedicated health budget.
func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	check, err := a.security.Default.Admit(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !check.Valid {
		writeRejection(w, check)
		return
	}

	writeSecure(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	}, check)
}
