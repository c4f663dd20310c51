package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/auth"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/http/handler"
	"github.com/straye-as/fms-api/internal/http/middleware"
	"github.com/straye-as/fms-api/internal/http/router"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	handler http.Handler
	tokens  *auth.TokenManager
	env     *testutil.Env
}

func newServer(t *testing.T) *server {
	t.Helper()
	env := testutil.NewEnv(t)
	cfg := env.Config
	cfg.RateLimit = config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100}
	svc := env.Services
	log := env.Logger

	tokens := auth.NewTokenManager(&cfg.Auth)
	rt := router.NewRouter(cfg, log, auth.NewMiddleware(&cfg.Auth, tokens, log), middleware.NewRateLimiter(&cfg.RateLimit, log), router.Handlers{
		Auth:        handler.NewAuthHandler(svc.Parties, tokens, log),
		Attachments: handler.NewAttachmentHandler(svc.Attachments, cfg.Storage.MaxUploadSizeMB, log),
		Reference:   handler.NewReferenceHandler(svc.References, log),
		Parties:     handler.NewPartyHandler(svc.Parties, log),
		Scheduling:  handler.NewSchedulingHandler(svc.Scheduling, log),
		Orders:      handler.NewOrderHandler(svc.Orders, log),
		Shipments:   handler.NewShipmentHandler(svc.Shipments, svc.Tracking, svc.Warnings, log),
		Bookings:    handler.NewBookingHandler(svc.Bookings, log),
		Documents:   handler.NewDocumentHandler(svc.Documents, log),
		Customs:     handler.NewCustomsHandler(svc.Customs, log),
		Notices:     handler.NewNoticeHandler(svc.Notices, log),
		Transport:   handler.NewTransportHandler(svc.Transport, log),
		Billing:     handler.NewBillingHandler(svc.Billing, log),
		Health:      handler.NewHealthHandler(env.DB, log),
	})
	return &server{handler: rt.Setup(), tokens: tokens, env: env}
}

func (s *server) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := s.tokens.Issue("kim."+role, "Test User", role)
	require.NoError(t, err)
	return token
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var problem domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

// ============================================================================
// Probes and authentication
// ============================================================================

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/reference/currencies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/reference/currencies", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/reference/currencies", s.token(t, auth.RoleViewer), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RoleChecks(t *testing.T) {
	s := newServer(t)
	shipment := map[string]interface{}{
		"transportMode": "SEA",
		"tradeType":     "EXPORT",
		"customerCode":  testutil.CustomerCode,
	}

	tests := []struct {
		name   string
		role   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"viewer cannot write", auth.RoleViewer, http.MethodPost, "/api/v1/shipments", shipment, http.StatusForbidden},
		{"operator creates shipments", auth.RoleOperator, http.MethodPost, "/api/v1/shipments", shipment, http.StatusCreated},
		{"operator cannot post charges", auth.RoleOperator, http.MethodPost, "/api/v1/billing/charges", map[string]string{}, http.StatusForbidden},
		{"operator cannot edit master data", auth.RoleOperator, http.MethodPut, "/api/v1/reference/countries", map[string]string{"code": "JP", "name": "Japan"}, http.StatusForbidden},
		{"admin edits master data", auth.RoleAdmin, http.MethodPut, "/api/v1/reference/countries", map[string]string{"code": "JP", "name": "Japan"}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, s.token(t, tt.role), tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// ============================================================================
// Error mapping
// ============================================================================

func TestAPI_ErrorMapping(t *testing.T) {
	s := newServer(t)
	token := s.token(t, auth.RoleOperator)
	shipment := testutil.CreateSeaShipment(t, s.env.Services)

	t.Run("unknown field is a bad request", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/shipments", token, map[string]string{"bogus": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("struct validation lists the field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/shipments", token, map[string]string{"transportMode": "RAIL", "tradeType": "EXPORT", "customerCode": "ACME"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		problem := decodeProblem(t, rec)
		assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
		assert.Contains(t, problem.Errors, "transportMode")
	})

	t.Run("unknown reference is unprocessable", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/shipments", token, map[string]string{"transportMode": "SEA", "tradeType": "EXPORT", "customerCode": "NOBODY"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		problem := decodeProblem(t, rec)
		assert.Equal(t, domain.ErrorTypeReference, problem.Type)
		assert.Equal(t, "NOBODY", problem.Errors["customerCode"])
	})

	t.Run("missing shipment is not found", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/shipments/"+uuid.NewString(), token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/shipments/42", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("illegal transition is a conflict", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/shipments/"+shipment.ID.String()+"/transitions", token, map[string]string{"status": "ARRIVED"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, domain.ErrorTypeTransition, decodeProblem(t, rec).Type)
	})

	t.Run("shipment by number", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/shipments/by-number/"+shipment.ShipmentNo, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.Shipment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, shipment.ID, got.ID)
	})
}
