package security

/*
				Calliper Security Adapter - Gateway
	Gateway is the single admission point for API handlers. It runs the
	validator chain (origin check, content type, rate limit, size limit) in
	order, then reads, parses and sanitises the JSON body. Handlers only ever
	see requests that cleared every check, and only ever see sanitised data.
*/

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/constants"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
	"github.com/calliperhq/calliper/internal/sanitize"
	"github.com/calliperhq/calliper/internal/util"
)

// CheckResult is what Admit hands back to a handler. When Valid is false the
// handler writes Reason with StatusCode and stops. Rate metadata is populated
// on both outcomes so quota headers can always be sent.
type CheckResult struct {
	Valid      bool
	Reason     string
	StatusCode int
	RateLimit  int
	Remaining  int
	ResetTime  time.Time
	RetryAfter int

	// SanitizedBody is the decoded JSON payload after sanitisation, nil when
	// the request carried no body.
	SanitizedBody any
}

var errBodyTooLarge = errors.New("request body exceeds configured limit")

type Gateway struct {
	chain       *ports.SecurityChain
	metrics     ports.SecurityMetricsService
	logger      *logger.StyledLogger
	maxBodySize int64

	trustProxyHeaders bool
	trustedCIDRs      []*net.IPNet
}

func NewGateway(chain *ports.SecurityChain, maxBodySize int64, limits config.ServerRateLimits, metrics ports.SecurityMetricsService, logger *logger.StyledLogger) *Gateway {
	return &Gateway{
		chain:             chain,
		metrics:           metrics,
		logger:            logger,
		maxBodySize:       maxBodySize,
		trustProxyHeaders: limits.TrustProxyHeaders,
		trustedCIDRs:      limits.TrustedProxyCIDRsParsed,
	}
}

// Admit runs the full admission pipeline for r. A non-nil error means a
// dependency failed (limiter store down) and the caller should respond 500
// without leaking detail.
func (g *Gateway) Admit(r *http.Request) (CheckResult, error) {
	clientID := util.RateLimitIdentifier(r)

	req := ports.SecurityRequest{
		ClientID:      clientID,
		Endpoint:      r.URL.Path,
		Method:        r.Method,
		Host:          r.Host,
		BodySize:      r.ContentLength,
		Headers:       r.Header,
		IsHealthCheck: r.URL.Path == constants.DefaultHealthCheckEndpoint,
	}

	result, err := g.chain.Validate(r.Context(), req)
	if err != nil {
		return CheckResult{}, err
	}

	if !result.Allowed {
		g.recordViolation(r, clientID, violationTypeFor(result.StatusCode), r.ContentLength)
		g.logger.WarnWithEndpoint("Request rejected", r.URL.Path,
			"client_id", clientID,
			"client_ip", util.GetClientIP(r, g.trustProxyHeaders, g.trustedCIDRs),
			"method", r.Method,
			"status", result.StatusCode,
			"reason", result.Reason)
		return denied(result), nil
	}

	body, err := g.readBody(r)
	if err != nil {
		g.recordViolation(r, clientID, constants.ViolationSizeLimit, r.ContentLength)
		out := denied(ports.SecurityResult{
			Reason:     "Request body too large",
			StatusCode: http.StatusRequestEntityTooLarge,
		})
		mergeRateMetadata(&out, result)
		return out, nil
	}

	out := CheckResult{
		Valid:     true,
		RateLimit: result.RateLimit,
		Remaining: result.Remaining,
		ResetTime: result.ResetTime,
	}

	if len(body) == 0 {
		return out, nil
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		g.recordViolation(r, clientID, constants.ViolationBodyParse, int64(len(body)))
		rejected := denied(ports.SecurityResult{
			Reason:     "Invalid JSON payload",
			StatusCode: http.StatusBadRequest,
		})
		mergeRateMetadata(&rejected, result)
		return rejected, nil
	}

	out.SanitizedBody = sanitize.Object(payload)
	return out, nil
}

// readBody drains the request body up to the configured cap. Clients that
// declare a small Content-Length but stream more than maxBodySize get an
// error here even though the size validator already passed them.
func (g *Gateway) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer func() { _ = r.Body.Close() }()

	if g.maxBodySize <= 0 {
		return io.ReadAll(r.Body)
	}

	limited := io.LimitReader(r.Body, g.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > g.maxBodySize {
		return nil, errBodyTooLarge
	}

	// Leave a rewound body behind for anything downstream that insists on
	// reading it directly.
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func (g *Gateway) recordViolation(r *http.Request, clientID, violationType string, size int64) {
	if g.metrics == nil {
		return
	}
	_ = g.metrics.RecordViolation(r.Context(), ports.SecurityViolation{
		ClientID:      clientID,
		ViolationType: violationType,
		Endpoint:      r.URL.Path,
		Size:          size,
		Timestamp:     time.Now(),
	})
}

func denied(result ports.SecurityResult) CheckResult {
	return CheckResult{
		Valid:      false,
		Reason:     result.Reason,
		StatusCode: result.StatusCode,
		RateLimit:  result.RateLimit,
		Remaining:  result.Remaining,
		ResetTime:  result.ResetTime,
		RetryAfter: result.RetryAfter,
	}
}

func mergeRateMetadata(out *CheckResult, from ports.SecurityResult) {
	if from.RateLimit > 0 {
		out.RateLimit = from.RateLimit
		out.Remaining = from.Remaining
		out.ResetTime = from.ResetTime
	}
}

// violationTypeFor maps a denial status back to the violation bucket, the
// chain itself does not say which validator fired.
func violationTypeFor(statusCode int) string {
	switch statusCode {
	case http.StatusForbidden:
		return constants.ViolationCSRF
	case http.StatusUnsupportedMediaType:
		return constants.ViolationContentType
	case http.StatusTooManyRequests:
		return constants.ViolationRateLimit
	case http.StatusRequestEntityTooLarge, http.StatusRequestHeaderFieldsTooLarge:
		return constants.ViolationSizeLimit
	default:
		return constants.ViolationBodyParse
	}
}
