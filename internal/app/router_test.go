package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/observability"
	"github.com/odyssey-erp/aqp/jobs"
)

func newTestRouter(t *testing.T, checks map[string]Pinger) (http.Handler, *observability.Metrics) {
	t.Helper()
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	t.Cleanup(RefreshTestMode)

	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Config:     &Config{AppEnv: "development"},
		Metrics:    metrics,
		JobHandler: jobs.NewHandler(nil, nil),
		Checks:     checks,
	})
	return router, metrics
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	router, _ := newTestRouter(t, map[string]Pinger{
		"postgres":  PingFunc(func(context.Context) error { return nil }),
		"gotenberg": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rr := serve(router, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body readinessReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["gotenberg"])
}

func TestReadyzWithoutChecks(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := serve(router, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestJobsHealthMountedAndMetricsScraped(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)

	rr = serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `aqp_http_requests_total{code="200",route="/jobs/health"} 1`)
}

func TestUnmountedRoutesReturnNotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, ReportPath+"/filters").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/realtime").Code)
}

func TestGlobalRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	for i := 0; i < RequestsPerMinute; i++ {
		require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz").Code, "request %d", i)
	}
	rr := serve(router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "Too many requests")
}
