package security

import (
	"context"
	"fmt"
	"net/http"

	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

const (
	DefaultProtocol = "HTTP/1.1"
)

/*
				Calliper Security Adapter - Size Limit Validator
	SizeValidator enforces request size limits for headers and body content.
	The body check uses the declared Content-Length so oversized payloads are
	rejected before a single body byte is read; the gateway additionally caps
	the reader for clients that lie about their length.

	Thread-safe by design as it maintains no internal mutable state.
*/

type SizeValidator struct {
	logger        *logger.StyledLogger
	maxBodySize   int64
	maxHeaderSize int64
}

func NewSizeValidator(limits config.ServerRequestLimits, logger *logger.StyledLogger) *SizeValidator {
	return &SizeValidator{
		maxBodySize:   limits.MaxBodySize,
		maxHeaderSize: limits.MaxHeaderSize,
		logger:        logger,
	}
}

func (sv *SizeValidator) Name() string {
	return "size_limit"
}

// Validate checks the request against configured size constraints.
func (sv *SizeValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	if err := sv.validateHeaderSize(req); err != nil {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("Request headers too large: %v", err),
			StatusCode: http.StatusRequestHeaderFieldsTooLarge,
		}, nil
	}

	if err := sv.validateBodySize(req); err != nil {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     "Request body too large",
			StatusCode: http.StatusRequestEntityTooLarge,
		}, nil
	}

	return ports.SecurityResult{Allowed: true}, nil
}

func (sv *SizeValidator) validateHeaderSize(req ports.SecurityRequest) error {
	if sv.maxHeaderSize <= 0 {
		return nil
	}

	totalSize := estimateHeaderSize(req.Headers, req.Method, req.Endpoint, DefaultProtocol)
	if totalSize > sv.maxHeaderSize {
		return fmt.Errorf("header size %d exceeds limit %d", totalSize, sv.maxHeaderSize)
	}
	return nil
}

func (sv *SizeValidator) validateBodySize(req ports.SecurityRequest) error {
	if sv.maxBodySize <= 0 {
		return nil
	}

	if req.BodySize > sv.maxBodySize {
		return fmt.Errorf("content-length %d exceeds limit %d", req.BodySize, sv.maxBodySize)
	}

	return nil
}

// MaxBodySize exposes the configured body cap so the gateway can mirror it
// onto the body reader.
func (sv *SizeValidator) MaxBodySize() int64 {
	return sv.maxBodySize
}

func estimateHeaderSize(headers http.Header, method, uri, proto string) int64 {
	var totalSize int64

	for name, values := range headers {
		totalSize += int64(len(name))
		for _, value := range values {
			totalSize += int64(len(value))
		}
		totalSize += int64(len(values) * 4) // header overhead
	}

	totalSize += int64(len(method) + len(uri) + len(proto) + 4) // request line

	return totalSize
}
