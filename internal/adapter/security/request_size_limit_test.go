package security

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeValidator_BodyLimit(t *testing.T) {
	validator := NewSizeValidator(config.ServerRequestLimits{
		MaxBodySize:   1024,
		MaxHeaderSize: 8192,
	}, createTestLogger())
	assert.Equal(t, "size_limit", validator.Name())

	tests := []struct {
		name     string
		bodySize int64
		allowed  bool
	}{
		{"Empty", 0, true},
		{"UnderLimit", 512, true},
		{"ExactlyAtLimit", 1024, true},
		{"OneByteOver", 1025, false},
		{"UnknownLength", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.Validate(context.Background(), ports.SecurityRequest{
				Method:   http.MethodPost,
				Endpoint: "/api/scores",
				BodySize: tt.bodySize,
				Headers:  http.Header{},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, result.Allowed)
			if !tt.allowed {
				assert.Equal(t, http.StatusRequestEntityTooLarge, result.StatusCode)
			}
		})
	}
}

func TestSizeValidator_HeaderLimit(t *testing.T) {
	validator := NewSizeValidator(config.ServerRequestLimits{
		MaxBodySize:   1 << 20,
		MaxHeaderSize: 256,
	}, createTestLogger())

	headers := http.Header{}
	headers.Set("X-Padding", strings.Repeat("a", 512))

	result, err := validator.Validate(context.Background(), ports.SecurityRequest{
		Method:   http.MethodGet,
		Endpoint: "/api/leaderboard",
		Headers:  headers,
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, result.StatusCode)
}

func TestSizeValidator_DisabledLimits(t *testing.T) {
	validator := NewSizeValidator(config.ServerRequestLimits{}, createTestLogger())

	result, err := validator.Validate(context.Background(), ports.SecurityRequest{
		Method:   http.MethodPost,
		BodySize: 1 << 30,
		Headers:  http.Header{},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
