package security

import (
	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

type Services struct {
	Default    *Gateway
	CheckEmail *Gateway
	Metrics    ports.SecurityMetricsService
}

type Adapters struct {
	RateLimit           *RateLimitValidator
	CheckEmailRateLimit *RateLimitValidator
	SizeValidation      *SizeValidator
	CSRF                *CSRFValidator
	ContentType         *ContentTypeValidator
	Metrics             *MetricsAdapter

	store ports.RateLimitStore
}

// NewSecurityServices creates and wires the admission gateways. The default
// gateway covers every API endpoint; the check-email gateway runs the same
// chain with tighter limits and its own limiter scope so probing the email
// endpoint burns a separate budget.
func NewSecurityServices(cfg *config.Config, store ports.RateLimitStore, logger *logger.StyledLogger) (*Services, *Adapters) {
	metricsAdapter := NewSecurityMetricsAdapter(logger)
	csrfValidator := NewCSRFValidator(logger)
	contentTypeValidator := NewContentTypeValidator(logger)

	rateLimits := cfg.Security.RateLimits

	defaultPolicy := ports.RateLimitPolicy{
		MaxRequests: rateLimits.MaxRequests,
		Window:      rateLimits.Window,
	}
	defaultRateLimit := NewRateLimitValidator(store, defaultPolicy, rateLimits, "", logger)
	defaultSize := NewSizeValidator(cfg.Security.RequestLimits, logger)

	defaultChain := ports.NewSecurityChain(
		csrfValidator,        /* origin first, cheapest to fail */
		contentTypeValidator, /* then the declared media type */
		defaultRateLimit,     /* then spend the window budget */
		defaultSize,          /* size last, before any body read */
	)
	defaultGateway := NewGateway(defaultChain, cfg.Security.RequestLimits.MaxBodySize, rateLimits, metricsAdapter, logger)

	checkEmailPolicy := ports.RateLimitPolicy{
		MaxRequests: cfg.Security.CheckEmail.MaxRequests,
		Window:      cfg.Security.CheckEmail.Window,
	}
	checkEmailRateLimit := NewRateLimitValidator(store, checkEmailPolicy, rateLimits, "check-email", logger)
	checkEmailSize := NewSizeValidator(config.ServerRequestLimits{
		MaxBodySize:   cfg.Security.CheckEmail.MaxBodySize,
		MaxHeaderSize: cfg.Security.RequestLimits.MaxHeaderSize,
	}, logger)

	checkEmailChain := ports.NewSecurityChain(
		csrfValidator,
		contentTypeValidator,
		checkEmailRateLimit,
		checkEmailSize,
	)
	checkEmailGateway := NewGateway(checkEmailChain, cfg.Security.CheckEmail.MaxBodySize, rateLimits, metricsAdapter, logger)

	services := &Services{
		Default:    defaultGateway,
		CheckEmail: checkEmailGateway,
		Metrics:    metricsAdapter,
	}

	adapters := &Adapters{
		RateLimit:           defaultRateLimit,
		CheckEmailRateLimit: checkEmailRateLimit,
		SizeValidation:      defaultSize,
		CSRF:                csrfValidator,
		ContentType:         contentTypeValidator,
		Metrics:             metricsAdapter,
		store:               store,
	}

	return services, adapters
}

func (sa *Adapters) Stop() {
	if sa.store != nil {
		sa.store.Stop()
	}
}
