package app

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/calliperhq/calliper/internal/adapter/security"
	"github.com/calliperhq/calliper/internal/core/constants"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError is the uniform error envelope. Messages here are user-facing;
// internals stay in the logs.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// applyQuotaHeaders stamps the X-RateLimit trio whenever the request spent
// window budget, on success and failure alike.
func applyQuotaHeaders(w http.ResponseWriter, check security.CheckResult) {
	if check.RateLimit <= 0 {
		return
	}
	w.Header().Set(constants.HeaderRateLimitLimit, strconv.Itoa(check.RateLimit))
	w.Header().Set(constants.HeaderRateLimitRemain, strconv.Itoa(check.Remaining))
	w.Header().Set(constants.HeaderRateLimitReset, strconv.FormatInt(check.ResetTime.Unix(), 10))
}

// writeSecure sends a success payload with quota headers attached.
func writeSecure(w http.ResponseWriter, status int, payload any, check security.CheckResult) {
	applyQuotaHeaders(w, check)
	writeJSON(w, status, payload)
}

// writeRejection turns a gateway denial into its HTTP response. Throttled
// clients additionally get Retry-After and the window reset in the body so
// well-behaved ones can back off precisely.
func writeRejection(w http.ResponseWriter, check security.CheckResult) {
	applyQuotaHeaders(w, check)

	if check.StatusCode == http.StatusTooManyRequests {
		if check.RetryAfter > 0 {
			w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(check.RetryAfter))
		}
		writeJSON(w, check.StatusCode, map[string]any{
			"error":     check.Reason,
			"resetTime": check.ResetTime.UnixMilli(),
		})
		return
	}

	writeError(w, check.StatusCode, check.Reason)
}

// stringField pulls a required string out of a sanitised JSON body.
func stringField(body any, key string) (string, bool) {
	object, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := object[key].(string)
	return value, ok
}

// bodyField returns the raw value for key, nil when absent.
func bodyField(body any, key string) any {
	object, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	return object[key]
}
