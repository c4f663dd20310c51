package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{JWTSecret: "test-secret", Issuer: "straye-fms", TokenTTL: 60, APIKey: "key-123"}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testAuthConfig())

	token, expires, err := m.Issue("kim", "Kim Lee", RoleOperator)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	p, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "kim", p.Username)
	assert.Equal(t, RoleOperator, p.Role)
	assert.Equal(t, AuthTypeJWT, p.AuthType)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testAuthConfig())

	_, _, err := m.Issue("kim", "", "ROOT")
	assert.Error(t, err)

	token, _, err := m.Issue("kim", "", RoleViewer)
	require.NoError(t, err)

	other := NewTokenManager(&config.AuthConfig{JWTSecret: "other", Issuer: "straye-fms"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, _, err = NewTokenManager(&config.AuthConfig{}).Issue("kim", "", RoleViewer)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestMiddleware_Authenticate(t *testing.T) {
	cfg := testAuthConfig()
	tokens := NewTokenManager(cfg)
	mw := NewMiddleware(cfg, tokens, zap.NewNop())

	var seen *Principal
	var actor string
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		actor = domain.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, _, err := tokens.Issue("kim", "Kim", RoleAccounting)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header map[string]string
		status int
		actor  string
	}{
		{"no credentials", nil, http.StatusUnauthorized, ""},
		{"bad api key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"api key", map[string]string{"X-API-Key": "key-123"}, http.StatusNoContent, systemUsername},
		{"malformed header", map[string]string{"Authorization": "Token abc"}, http.StatusUnauthorized, ""},
		{"bearer", map[string]string{"Authorization": "Bearer " + token}, http.StatusNoContent, "kim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, actor = nil, ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, tt.actor, actor)
			} else {
				assert.Nil(t, seen)
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMiddleware_RequireWrite(t *testing.T) {
	mw := NewMiddleware(testAuthConfig(), NewTokenManager(testAuthConfig()), zap.NewNop())
	h := mw.RequireWrite(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	viewer := &Principal{Username: "v", Role: RoleViewer}
	operator := &Principal{Username: "o", Role: RoleOperator}

	run := func(method string, p *Principal) int {
		req := httptest.NewRequest(method, "/x", nil)
		req = req.WithContext(WithPrincipal(req.Context(), p))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(http.MethodGet, viewer))
	assert.Equal(t, http.StatusForbidden, run(http.MethodPost, viewer))
	assert.Equal(t, http.StatusOK, run(http.MethodPost, operator))
}

func TestPrincipal_HasAnyRole(t *testing.T) {
	assert.True(t, (&Principal{Role: RoleAdmin}).HasAnyRole(RoleAccounting))
	assert.True(t, (&Principal{Role: RoleAccounting}).HasAnyRole(RoleAccounting))
	assert.False(t, (&Principal{Role: RoleOperator}).HasAnyRole(RoleAccounting))
	assert.False(t, (&Principal{Role: RoleViewer}).CanWrite())
}
