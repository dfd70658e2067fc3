package ports

import (
	"context"
	"net/http"
	"time"
)

// SecurityRequest is the validator-facing view of an inbound request. It is
// deliberately decoupled from *http.Request so validators stay testable.
type SecurityRequest struct {
	ClientID      string
	Endpoint      string
	Method        string
	Host          string
	BodySize      int64
	Headers       http.Header
	IsHealthCheck bool
}

// SecurityResult is the outcome of a single validator. StatusCode is only
// meaningful when Allowed is false.
type SecurityResult struct {
	Allowed    bool
	Reason     string
	StatusCode int
	RetryAfter int
	RateLimit  int
	Remaining  int
	ResetTime  time.Time
}

type SecurityViolation struct {
	ClientID      string
	ViolationType string
	Endpoint      string
	Size          int64
	Timestamp     time.Time
}

type SecurityMetrics struct {
	RateLimitViolations   int64
	SizeLimitViolations   int64
	CSRFViolations        int64
	ContentTypeViolations int64
	BodyParseViolations   int64
	UniqueRateLimitedIPs  int
}

// SecurityValidator is one ordered admission step. Validators must be safe
// for concurrent use.
type SecurityValidator interface {
	Validate(ctx context.Context, req SecurityRequest) (SecurityResult, error)
	Name() string
}

// SecurityChain runs validators in order and short-circuits on the first
// denial. Later validators never run once an earlier one fails.
type SecurityChain struct {
	validators []SecurityValidator
}

func NewSecurityChain(validators ...SecurityValidator) *SecurityChain {
	return &SecurityChain{
		validators: validators,
	}
}

// Validate returns the first denial, or an allowed result carrying the
// rate-limit quota metadata of whichever validator produced it.
func (sc *SecurityChain) Validate(ctx context.Context, req SecurityRequest) (SecurityResult, error) {
	merged := SecurityResult{Allowed: true}
	for _, validator := range sc.validators {
		result, err := validator.Validate(ctx, req)
		if err != nil {
			return result, err
		}
		if !result.Allowed {
			return result, nil
		}
		if result.RateLimit > 0 {
			merged.RateLimit = result.RateLimit
			merged.Remaining = result.Remaining
			merged.ResetTime = result.ResetTime
		}
	}
	return merged, nil
}

func (sc *SecurityChain) GetValidators() []SecurityValidator {
	return sc.validators
}

type SecurityMetricsService interface {
	RecordViolation(ctx context.Context, violation SecurityViolation) error
	GetMetrics(ctx context.Context) (SecurityMetrics, error)
}
