package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgate/flowgate/pkg/config"
	apperrors "github.com/flowgate/flowgate/pkg/errors"
	"github.com/flowgate/flowgate/pkg/resilience"
)

func testRouter(t *testing.T) (*gin.Engine, *resilience.CircuitRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := resilience.NewCircuitRegistry(resilience.RegistryConfig{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		ResetTimeout:        time.Minute,
		HalfOpenConcurrency: 1,
		MonitorInterval:     time.Minute,
	}, nil, nil)

	cfg := &config.Config{}
	cfg.Logging.Level = "error"

	return NewRouter(cfg, nil, nil, nil, registry), registry
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	router, registry := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "NORMAL", body["degradation"])

	// An open circuit degrades the report but keeps the endpoint 200
	registry.ForceOpen(resilience.ServiceKey("mailer"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "CRITICAL", body["degradation"])
}

func TestListCircuits(t *testing.T) {
	router, registry := testRouter(t)

	registry.RecordSuccess(resilience.NodeKey("http-request"))
	registry.RecordFailure(resilience.ServiceKey("crm"), errors.New("boom"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/circuits", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])
	assert.Equal(t, "NORMAL", data["degradation"])
	assert.Len(t, data["circuits"], 2)
}

func TestGetCircuitStatus(t *testing.T) {
	router, registry := testRouter(t)
	key := resilience.NodeKey("webhook")
	registry.RecordFailure(key, errors.New("boom"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/circuits/status?key="+key, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, key, data["key"])
	assert.Equal(t, "Closed", data["state"])
	assert.Equal(t, float64(1), data["failures"])
}

func TestGetCircuitStatus_MissingKey(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/circuits/status", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestGetCircuitStatus_UnknownKey(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/circuits/status?key=node:never", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckCircuit(t *testing.T) {
	router, registry := testRouter(t)
	key := resilience.ServiceKey("sheets")
	registry.ForceOpen(key)

	body, _ := json.Marshal(map[string]string{"key": key})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["can_execute"])
}

func TestResetCircuit(t *testing.T) {
	router, registry := testRouter(t)
	key := resilience.ServiceKey("crm")
	registry.ForceOpen(key)

	body, _ := json.Marshal(map[string]string{"key": key})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/reset", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Closed", data["state"])
	assert.True(t, registry.CanExecute(key))
}

func TestForceOpenCircuit(t *testing.T) {
	router, registry := testRouter(t)
	key := resilience.NodeKey("ai-completion")

	body, _ := json.Marshal(map[string]string{"key": key})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/force-open", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Open", data["state"])
	assert.False(t, registry.CanExecute(key))
}

func TestAdministrativeRoutes_RejectEmptyBody(t *testing.T) {
	router, _ := testRouter(t)

	for _, path := range []string{
		"/api/v1/circuits/check",
		"/api/v1/circuits/reset",
		"/api/v1/circuits/force-open",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circuits", nil)
	req.Header.Set("X-Request-ID", "req-12345")
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-12345", rec.Header().Get("X-Request-ID"))
	resp := decodeResponse(t, rec)
	assert.Equal(t, "req-12345", resp.RequestID)
}

func TestNoRoute(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestErrorResponseFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", apperrors.NewNotFoundError("flow"), http.StatusNotFound, "NOT_FOUND"},
		{"rate limit", apperrors.NewRateLimitError("slow down"), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"timeout", apperrors.NewTimeoutError("render"), http.StatusGatewayTimeout, "TIMEOUT"},
		{"external", apperrors.NewProviderError("openai", "bad gateway"), http.StatusBadGateway, "PROVIDER_ERROR"},
		{"circuit open", &resilience.CircuitOpenError{Key: "service:crm", Remaining: 2 * time.Second}, http.StatusServiceUnavailable, "CIRCUIT_OPEN"},
		{"opaque", errors.New("gremlins"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/boom", func(c *gin.Context) {
				ErrorResponseFromError(c, tt.err)
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
