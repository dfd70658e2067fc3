package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	identitymem "github.com/calliperhq/calliper/internal/adapter/identity/memory"
	"github.com/calliperhq/calliper/internal/adapter/ratelimit"
	"github.com/calliperhq/calliper/internal/adapter/security"
	storagemem "github.com/calliperhq/calliper/internal/adapter/storage/memory"
	storageredis "github.com/calliperhq/calliper/internal/adapter/storage/redis"
	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

// Application wires configuration, storage backends, the security gateways
// and the HTTP server together.
type Application struct {
	configMu sync.RWMutex
	config   *config.Config
	server   *http.Server
	logger   *logger.StyledLogger

	security         *security.Services
	securityAdapters *security.Adapters
	identity         ports.IdentityProvider
	scores           ports.ScoreStore
	profiles         ports.ProfileStore

	redisClient *goredis.Client
	errCh       chan error
}

// New creates a new application instance
func New(styledLogger *logger.StyledLogger) (*Application, error) {
	app := &Application{
		logger: styledLogger,
		errCh:  make(chan error, 1),
	}

	/**
	 * Configuration comes up with defaults first, then viper re-reads it on
	 * file changes so limits can be tuned without a restart. Validators built
	 * at startup use the values they were constructed with; only settings
	 * read per-request pick up the new file.
	 **/
	cfg, err := config.Load(func() {
		if err := viper.ReadInConfig(); err != nil {
			styledLogger.Error("Failed to re-read config file", "error", err)
			return
		}

		newConfig, err := config.Reload()
		if err != nil {
			styledLogger.Error("Failed to apply new config", "error", err)
			return
		}

		app.setConfig(newConfig)
		styledLogger.Info("Configuration reloaded", "file", newConfig.Filename)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	app.setConfig(cfg)

	if err := app.buildBackends(cfg); err != nil {
		return nil, err
	}

	app.server = &http.Server{
		Addr:         cfg.Server.GetAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      nil, // Will be set in Start()
	}

	return app, nil
}

// buildBackends selects the limiter store and the score/profile stores from
// the configured storage backend. The identity provider is in-process either
// way; production deployments swap it at the port.
func (a *Application) buildBackends(cfg *config.Config) error {
	var limiterStore ports.RateLimitStore

	switch cfg.Storage.Backend {
	case "", "memory":
		limiterStore = ratelimit.NewMemoryStore(cfg.Security.RateLimits.SweepInterval)
		a.scores = storagemem.NewScoreStore()
		a.profiles = storagemem.NewProfileStore()

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		a.redisClient = client
		limiterStore = ratelimit.NewRedisStore(client)
		a.scores = storageredis.NewScoreStore(client)
		a.profiles = storageredis.NewProfileStore(client)

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	a.identity = identitymem.NewProvider(identitymem.DefaultSessionTTL)
	a.security, a.securityAdapters = security.NewSecurityServices(cfg, limiterStore, a.logger)

	return nil
}

// Start starts the application
func (a *Application) Start(ctx context.Context) error {
	go func() {
		select {
		case err := <-a.errCh:
			a.logger.Error("Server startup error", "error", err)
		case <-ctx.Done():
			return
		}
	}()

	a.startWebServer()

	a.logger.Info("Calliper started", "bind", a.server.Addr, "backend", a.getConfig().Storage.Backend)
	return nil
}

// Stop stops the application
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.getConfig().Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	a.securityAdapters.Stop()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Failed to close redis client", "error", err)
		}
	}

	return nil
}

func (a *Application) getConfig() *config.Config {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.config
}

func (a *Application) setConfig(cfg *config.Config) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.config = cfg
}

// uptime anchor for the health endpoint
var startedAt = time.Now()
