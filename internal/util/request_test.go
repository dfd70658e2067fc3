package util

import (
	"net/http/httptest"
	"testing"
)

func TestRateLimitIdentifier(t *testing.T) {
	testCases := []struct {
		name          string
		xForwardedFor string
		xRealIP       string
		expected      string
	}{
		{
			name:          "x-forwarded-for single",
			xForwardedFor: "203.0.113.1",
			expected:      "rate-limit:203.0.113.1",
		},
		{
			name:          "x-forwarded-for takes first entry",
			xForwardedFor: "203.0.113.1, 10.0.0.1, 172.16.0.1",
			expected:      "rate-limit:203.0.113.1",
		},
		{
			name:     "x-real-ip fallback",
			xRealIP:  "203.0.113.2",
			expected: "rate-limit:203.0.113.2",
		},
		{
			name:          "x-forwarded-for wins over x-real-ip",
			xForwardedFor: "203.0.113.1",
			xRealIP:       "203.0.113.2",
			expected:      "rate-limit:203.0.113.1",
		},
		{
			name:     "no headers falls back to unknown",
			expected: "rate-limit:unknown",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/check-email", nil)
			if tc.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tc.xForwardedFor)
			}
			if tc.xRealIP != "" {
				req.Header.Set("X-Real-IP", tc.xRealIP)
			}

			if got := RateLimitIdentifier(req); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestGetClientIP_DirectConnection(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/leaderboard", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")

	// without proxy trust the header must be ignored
	if got := GetClientIP(req, false, nil); got != "192.168.1.100" {
		t.Errorf("expected remote addr IP, got %q", got)
	}
}

func TestGetClientIP_TrustedProxy(t *testing.T) {
	cidrs, err := ParseTrustedCIDRs([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("ParseTrustedCIDRs: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/leaderboard", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")

	if got := GetClientIP(req, true, cidrs); got != "203.0.113.1" {
		t.Errorf("expected forwarded IP, got %q", got)
	}

	// untrusted peer keeps its own address even with the header set
	req.RemoteAddr = "198.51.100.7:443"
	if got := GetClientIP(req, true, cidrs); got != "198.51.100.7" {
		t.Errorf("expected remote addr IP for untrusted peer, got %q", got)
	}
}

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := GenerateRequestID()
		if id == "" {
			t.Fatal("empty request id")
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Error("request ids should vary")
	}
}
