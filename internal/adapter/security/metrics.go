package security

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/calliperhq/calliper/internal/core/constants"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

// MetricsAdapter counts rejections per violation type and tracks the set of
// clients that have tripped the rate limiter. Counters are atomics; only the
// client set takes a lock.
type MetricsAdapter struct {
	logger *logger.StyledLogger

	rateLimitViolations   atomic.Int64
	sizeLimitViolations   atomic.Int64
	csrfViolations        atomic.Int64
	contentTypeViolations atomic.Int64
	bodyParseViolations   atomic.Int64

	mu             sync.Mutex
	rateLimitedIPs map[string]struct{}
}

func NewSecurityMetricsAdapter(logger *logger.StyledLogger) *MetricsAdapter {
	return &MetricsAdapter{
		logger:         logger,
		rateLimitedIPs: make(map[string]struct{}),
	}
}

func (sma *MetricsAdapter) RecordViolation(ctx context.Context, violation ports.SecurityViolation) error {
	switch violation.ViolationType {
	case constants.ViolationRateLimit:
		sma.rateLimitViolations.Add(1)
		sma.mu.Lock()
		sma.rateLimitedIPs[violation.ClientID] = struct{}{}
		sma.mu.Unlock()
	case constants.ViolationSizeLimit:
		sma.sizeLimitViolations.Add(1)
		if violation.Size > 50*1024*1024 {
			sma.logger.Warn("Large request blocked",
				"client_id", violation.ClientID,
				"size", violation.Size,
				"endpoint", violation.Endpoint)
		}
	case constants.ViolationCSRF:
		sma.csrfViolations.Add(1)
	case constants.ViolationContentType:
		sma.contentTypeViolations.Add(1)
	case constants.ViolationBodyParse:
		sma.bodyParseViolations.Add(1)
	}

	return nil
}

func (sma *MetricsAdapter) GetMetrics(ctx context.Context) (ports.SecurityMetrics, error) {
	sma.mu.Lock()
	uniqueIPs := len(sma.rateLimitedIPs)
	sma.mu.Unlock()

	return ports.SecurityMetrics{
		RateLimitViolations:   sma.rateLimitViolations.Load(),
		SizeLimitViolations:   sma.sizeLimitViolations.Load(),
		CSRFViolations:        sma.csrfViolations.Load(),
		ContentTypeViolations: sma.contentTypeViolations.Load(),
		BodyParseViolations:   sma.bodyParseViolations.Load(),
		UniqueRateLimitedIPs:  uniqueIPs,
	}, nil
}
