package app

import (
	"errors"
	"net/http"

	"github.com/calliperhq/calliper/internal/app/middleware"
	"github.com/calliperhq/calliper/internal/core/constants"
	"github.com/calliperhq/calliper/internal/util"
)

func (a *Application) startWebServer() {
	cfg := a.getConfig()
	a.logger.Info("Starting WebServer...", "host", cfg.Server.Host, "port", cfg.Server.Port)

	if !util.IsPortAvailable(cfg.Server.Host, cfg.Server.Port) {
		a.logger.Warn("Port appears to be in use, listener may fail", "host", cfg.Server.Host, "port", cfg.Server.Port)
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	handler := http.Handler(mux)
	if cfg.Logging.FileOutput {
		handler = middleware.AccessLogging(a.logger)(handler)
	}
	if cfg.Server.RequestLogging {
		handler = middleware.RequestLogging(a.logger)(handler)
	}
	handler = middleware.SecurityHeaders(handler)

	a.server.Handler = handler

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", "error", err)
			a.errCh <- err
		}
	}()

	a.logger.Info("Started WebServer", "bind", a.server.Addr)
}

func (a *Application) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/check-email", a.handleCheckEmail)
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("POST /api/verify-email", a.handleVerifyEmail)

	mux.HandleFunc("POST /api/scores", a.handleSubmitScore)
	mux.HandleFunc("GET /api/leaderboard", a.handleLeaderboard)

	mux.HandleFunc("GET /api/profile", a.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", a.handleUpdateProfile)

	mux.HandleFunc("GET "+constants.DefaultHealthCheckEndpoint, a.healthHandler)
	mux.HandleFunc("GET "+constants.DefaultVersionEndpoint, a.versionHandler)
}
