package security

import (
	"context"
	"mime"
	"net/http"

	"github.com/calliperhq/calliper/internal/core/constants"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
)

// ContentTypeValidator requires application/json on body-carrying methods.
// GET, HEAD, OPTIONS and DELETE requests pass untouched.
type ContentTypeValidator struct {
	logger *logger.StyledLogger
}

func NewContentTypeValidator(logger *logger.StyledLogger) *ContentTypeValidator {
	return &ContentTypeValidator{logger: logger}
}

func (cv *ContentTypeValidator) Name() string {
	return "content_type"
}

func (cv *ContentTypeValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ports.SecurityResult{Allowed: true}, nil
	}

	contentType := req.Headers.Get(constants.ContentTypeHeader)
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != constants.ContentTypeJSON {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     "Content-Type must be application/json",
			StatusCode: http.StatusUnsupportedMediaType,
		}, nil
	}

	return ports.SecurityResult{Allowed: true}, nil
}
