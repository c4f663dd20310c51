package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/straye-as/fms-api/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestLogging_KeepsRequestID(t *testing.T) {
	var seen string
	h := Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		WhitelistPaths:    []string{"/health", "/health/*"},
	}, zap.NewNop())
	h := rl.Limit(http.HandlerFunc(ok))

	call := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("/api/v1/ports"))
	assert.Equal(t, http.StatusOK, call("/api/v1/ports"))
	assert.Equal(t, http.StatusTooManyRequests, call("/api/v1/ports"))
	assert.Equal(t, http.StatusOK, call("/health"))
	assert.Equal(t, http.StatusOK, call("/health/db"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(&config.SecurityConfig{
		EnableHSTS:         true,
		HSTSMaxAge:         60,
		FrameOptions:       "DENY",
		ContentTypeNosniff: true,
	})(http.HandlerFunc(ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=60; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{AllowedMethods: []string{"GET", "POST"}}
	tests := []struct {
		name        string
		origins     []string
		environment string
		origin      string
		want        string
	}{
		{"development allows any origin", nil, "development", "http://localhost:3000", "http://localhost:3000"},
		{"production denies without origins", nil, "production", "https://portal.example.com", ""},
		{"explicit origin allowed", []string{"https://portal.example.com"}, "production", "https://portal.example.com", "https://portal.example.com"},
		{"explicit origin rejects others", []string{"https://portal.example.com"}, "production", "https://evil.example.com", ""},
		{"wildcard echoes caller", []string{"*"}, "staging", "https://partner.example.com", "https://partner.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.AllowedOrigins = tt.origins
			h := CORS(&c, tt.environment, zap.NewNop())(http.HandlerFunc(ok))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
