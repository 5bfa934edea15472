package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/config"
	"github.com/scaleneo/bilan/internal/observability/metrics"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.MaxUploadBytes = 64
	return NewRouter(cfg, metrics.New(nil), zap.NewNop())
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy","service":"bilan-api","version":"1.0.0"}`, rec.Body.String())
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	h := newTestRouter(t)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/timeline/config", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bilan_http_requests_total{method="GET",route="/api/v1/timeline/config",status="200"} 1`)
}

func TestBodyLimit(t *testing.T) {
	h := newTestRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/extract", strings.NewReader(strings.Repeat("x", 100)))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
