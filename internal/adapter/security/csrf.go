package security

/*
				Calliper Security Adapter - CSRF Origin Validator
	CSRFValidator applies an origin check to state-changing requests. The
	Origin header must match the request host; when Origin is absent the
	Referer host is checked instead; when neither is present the request is
	denied. Safe methods always pass.

	Thread-safe by design as it maintains no internal mutable state.
*/

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

type CSRFValidator struct {
	logger *logger.StyledLogger
}

func NewCSRFValidator(logger *logger.StyledLogger) *CSRFValidator {
	return &CSRFValidator{logger: logger}
}

func (cv *CSRFValidator) Name() string {
	return "csrf"
}

// Validate enforces same-origin for POST, PUT, PATCH and DELETE requests.
// Requests with no Origin and no Referer are denied.
func (cv *CSRFValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	if isSafeMethod(req.Method) {
		return ports.SecurityResult{Allowed: true}, nil
	}

	if origin := req.Headers.Get("Origin"); origin != "" {
		if hostMatches(origin, req.Host) {
			return ports.SecurityResult{Allowed: true}, nil
		}
		return cv.deny(), nil
	}

	if referer := req.Headers.Get("Referer"); referer != "" {
		if hostMatches(referer, req.Host) {
			return ports.SecurityResult{Allowed: true}, nil
		}
		return cv.deny(), nil
	}

	// No provenance at all, fail closed.
	return cv.deny(), nil
}

func (cv *CSRFValidator) deny() ports.SecurityResult {
	return ports.SecurityResult{
		Allowed:    false,
		Reason:     "Invalid request origin",
		StatusCode: http.StatusForbidden,
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// hostMatches reports whether the URL in raw points at host. A raw value
// that fails to parse never matches.
func hostMatches(raw, host string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.EqualFold(parsed.Host, host)
}
