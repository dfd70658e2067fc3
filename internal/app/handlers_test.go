package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitymem "github.com/calliperhq/calliper/internal/adapter/identity/memory"
	"github.com/calliperhq/calliper/internal/app/middleware"
	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/logger"
	"github.com/calliperhq/calliper/theme"
)

const testHost = "game.example.com"

func newTestApplication(t *testing.T) (*Application, http.Handler) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Security.RateLimits.MaxRequests = 100
	cfg.Security.CheckEmail.MaxRequests = 100
	cfg.Security.CheckEmail.MaxBodySize = config.DefaultCheckEmailMaxBodySize

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &Application{
		logger: logger.NewStyledLogger(log, theme.Default()),
		errCh:  make(chan error, 1),
	}
	app.setConfig(cfg)
	require.NoError(t, app.buildBackends(cfg))
	t.Cleanup(app.securityAdapters.Stop)

	mux := http.NewServeMux()
	app.registerRoutes(mux)
	return app, middleware.SecurityHeaders(mux)
}

func jsonRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Host = testHost
	r.Header.Set("Origin", "https://"+testHost)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func do(t *testing.T, handler http.Handler, r *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

// registerAndLogin walks an account through the register, verify, login flow
// and returns its bearer token.
func registerAndLogin(t *testing.T, app *Application, handler http.Handler, email, username string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":"Correct1Horse","username":%q}`, email, username)
	rec, _ := do(t, handler, jsonRequest(http.MethodPost, "/api/register", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	provider := app.identity.(*identitymem.Provider)
	token := provider.VerificationToken(email)
	require.NotEmpty(t, token)

	rec, _ = do(t, handler, jsonRequest(http.MethodPost, "/api/verify-email", fmt.Sprintf(`{"token":%q}`, token)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/login", fmt.Sprintf(`{"email":%q,"password":"Correct1Horse"}`, email)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	bearer, _ := payload["token"].(string)
	require.NotEmpty(t, bearer)
	return bearer
}

func TestAccountFlow(t *testing.T) {
	app, handler := newTestApplication(t)

	rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/register",
		`{"email":"Player@Example.com","password":"Correct1Horse","username":"gauge_reader"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "player@example.com", payload["email"])
	assert.Equal(t, true, payload["verification_required"])
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	// Unverified accounts cannot log in yet.
	rec, _ = do(t, handler, jsonRequest(http.MethodPost, "/api/login",
		`{"email":"player@example.com","password":"Correct1Horse"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	provider := app.identity.(*identitymem.Provider)
	token := provider.VerificationToken("player@example.com")
	require.NotEmpty(t, token)

	rec, _ = do(t, handler, jsonRequest(http.MethodPost, "/api/verify-email", fmt.Sprintf(`{"token":%q}`, token)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, payload = do(t, handler, jsonRequest(http.MethodPost, "/api/login",
		`{"email":"player@example.com","password":"Correct1Horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, payload["token"])
}

func TestRegister_Validation(t *testing.T) {
	_, handler := newTestApplication(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"MissingEmail", `{"password":"Correct1Horse"}`, http.StatusBadRequest},
		{"BadEmail", `{"email":"not-an-email","password":"Correct1Horse"}`, http.StatusBadRequest},
		{"MissingPassword", `{"email":"a@b.com"}`, http.StatusBadRequest},
		{"WeakPassword", `{"email":"a@b.com","password":"short"}`, http.StatusBadRequest},
		{"NoDigitPassword", `{"email":"a@b.com","password":"Nodigitshere"}`, http.StatusBadRequest},
		{"ReservedUsername", `{"email":"a@b.com","password":"Correct1Horse","username":"admin"}`, http.StatusBadRequest},
		{"BadUsername", `{"email":"a@b.com","password":"Correct1Horse","username":"_abc"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/register", tt.body))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	_, handler := newTestApplication(t)

	rec, _ := do(t, handler, jsonRequest(http.MethodPost, "/api/register",
		`{"email":"taken@example.com","password":"Correct1Horse"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/register",
		`{"email":"taken@example.com","password":"An0therPass"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", payload["error"])
}

func TestLogin_GenericInvalidCredentials(t *testing.T) {
	_, handler := newTestApplication(t)

	rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/login",
		`{"email":"nobody@example.com","password":"Correct1Horse"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", payload["error"])
}

func TestCheckEmail(t *testing.T) {
	_, handler := newTestApplication(t)

	rec, _ := do(t, handler, jsonRequest(http.MethodPost, "/api/register",
		`{"email":"known@example.com","password":"Correct1Horse"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", `{"email":"known@example.com"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["exists"])
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	rec, payload = do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", `{"email":"unknown@example.com"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["exists"])

	rec, payload = do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required and must be a valid string", payload["error"])

	rec, _ = do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", `{"email":"not-an-email"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScores(t *testing.T) {
	app, handler := newTestApplication(t)
	bearer := registerAndLogin(t, app, handler, "player@example.com", "gauge_reader")

	// No token, no score.
	rec, _ := do(t, handler, jsonRequest(http.MethodPost, "/api/scores", `{"score": 12.5}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	submit := func(body string) (*httptest.ResponseRecorder, map[string]any) {
		r := jsonRequest(http.MethodPost, "/api/scores", body)
		r.Header.Set("Authorization", "Bearer "+bearer)
		return do(t, handler, r)
	}

	rec, payload := submit(`{"score": 12.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 12.5, payload["best"])
	assert.Equal(t, true, payload["improved"])

	rec, payload = submit(`{"score": 40.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.5, payload["best"], "a worse attempt leaves the best alone")
	assert.Equal(t, false, payload["improved"])

	rec, payload = submit(`{"score": 3.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.25, payload["best"])
	assert.Equal(t, true, payload["improved"])

	rec, _ = submit(`{"score": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = submit(`{"score": "NaN"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	app, handler := newTestApplication(t)

	first := registerAndLogin(t, app, handler, "first@example.com", "sharp_eye")
	second := registerAndLogin(t, app, handler, "second@example.com", "close_enough")

	submit := func(bearer, body string) {
		r := jsonRequest(http.MethodPost, "/api/scores", body)
		r.Header.Set("Authorization", "Bearer "+bearer)
		rec, _ := do(t, handler, r)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	submit(first, `{"score": 4.5}`)
	submit(second, `{"score": 1.25}`)

	rec, payload := do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, ok := payload["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)

	top := entries[0].(map[string]any)
	assert.Equal(t, "close_enough", top["username"])
	assert.Equal(t, 1.25, top["best_score"])
	assert.Equal(t, float64(1), top["rank"])

	runnerUp := entries[1].(map[string]any)
	assert.Equal(t, "sharp_eye", runnerUp["username"])
	assert.Equal(t, float64(2), runnerUp["rank"])

	rec, payload = do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard?limit=1", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["entries"].([]any), 1)

	rec, _ = do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard?limit=0", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard?limit=nope", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	app, handler := newTestApplication(t)
	bearer := registerAndLogin(t, app, handler, "player@example.com", "gauge_reader")

	authed := func(method, path, body string) *http.Request {
		r := jsonRequest(method, path, body)
		r.Header.Set("Authorization", "Bearer "+bearer)
		return r
	}

	rec, payload := do(t, handler, authed(http.MethodGet, "/api/profile", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gauge_reader", payload["username"])

	rec, payload = do(t, handler, authed(http.MethodPut, "/api/profile", `{"username":"tape_master"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "tape_master", payload["username"])

	rec, _ = do(t, handler, authed(http.MethodPut, "/api/profile", `{"username":"admin"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other := registerAndLogin(t, app, handler, "other@example.com", "short_ruler")
	r := jsonRequest(http.MethodPut, "/api/profile", `{"username":"tape_master"}`)
	r.Header.Set("Authorization", "Bearer "+other)
	rec, payload = do(t, handler, r)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, payload["error"])

	rec, _ = do(t, handler, jsonRequest(http.MethodGet, "/api/profile", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecurityRejections(t *testing.T) {
	_, handler := newTestApplication(t)

	t.Run("MissingOrigin", func(t *testing.T) {
		r := jsonRequest(http.MethodPost, "/api/check-email", `{"email":"a@b.com"}`)
		r.Header.Del("Origin")
		rec, payload := do(t, handler, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotEmpty(t, payload["error"])
	})

	t.Run("CrossOrigin", func(t *testing.T) {
		r := jsonRequest(http.MethodPost, "/api/check-email", `{"email":"a@b.com"}`)
		r.Header.Set("Origin", "https://evil.example.net")
		rec, _ := do(t, handler, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("WrongContentType", func(t *testing.T) {
		r := jsonRequest(http.MethodPost, "/api/check-email", `{"email":"a@b.com"}`)
		r.Header.Set("Content-Type", "text/plain")
		rec, _ := do(t, handler, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		rec, payload := do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", `{"email": `))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid JSON payload", payload["error"])
	})

	t.Run("OversizeBody", func(t *testing.T) {
		big := `{"email":"` + strings.Repeat("a", 2048) + `@b.com"}`
		rec, _ := do(t, handler, jsonRequest(http.MethodPost, "/api/check-email", big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRateLimitRejection(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.RateLimits.MaxRequests = 2

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &Application{
		logger: logger.NewStyledLogger(log, theme.Default()),
		errCh:  make(chan error, 1),
	}
	app.setConfig(cfg)
	require.NoError(t, app.buildBackends(cfg))
	t.Cleanup(app.securityAdapters.Stop)

	mux := http.NewServeMux()
	app.registerRoutes(mux)
	handler := middleware.SecurityHeaders(mux)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard", ""))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, payload := do(t, handler, jsonRequest(http.MethodGet, "/api/leaderboard", ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, payload["error"])
	assert.NotZero(t, payload["resetTime"])
}

func TestHealthAndVersion(t *testing.T) {
	_, handler := newTestApplication(t)

	rec, payload := do(t, handler, jsonRequest(http.MethodGet, "/internal/health", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", payload["status"])

	rec, payload = do(t, handler, jsonRequest(http.MethodGet, "/version", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "calliper", payload["name"])
	assert.NotEmpty(t, payload["version"])
}

func TestSanitizedBodyReachesHandlers(t *testing.T) {
	app, handler := newTestApplication(t)
	bearer := registerAndLogin(t, app, handler, "player@example.com", "gauge_reader")

	// Control bytes and markup are stripped before validation sees the name.
	r := jsonRequest(http.MethodPut, "/api/profile", "{\"username\":\"tape<b>master<b>\x00\"}")
	r.Header.Set("Authorization", "Bearer "+bearer)
	rec, payload := do(t, handler, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "tapebmasterb", payload["username"])
}
