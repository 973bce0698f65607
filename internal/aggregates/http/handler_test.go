package aggregateshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
)

type fakeService struct {
	query aggregates.ListQuery
	rows  []aggregates.Aggregate
}

func (f *fakeService) List(ctx context.Context, q aggregates.ListQuery) ([]aggregates.Aggregate, error) {
	f.query = q
	if err := q.Timespan.Validate(); err != nil {
		return nil, err
	}
	return f.rows, nil
}

func (f *fakeService) DailyRegionAggregates(ctx context.Context, from, to time.Time, region string) (map[string]aggregates.Aggregate, error) {
	return map[string]aggregates.Aggregate{"2024-03-15": {Region: region, PM25: 12.5}}, nil
}

type fakeEnqueuer struct {
	from, to  time.Time
	dailyOnly bool
	err       error
}

func (f *fakeEnqueuer) EnqueueAggregateRange(ctx context.Context, from, to time.Time, dailyOnly bool) (string, error) {
	f.from, f.to, f.dailyOnly = from, to, dailyOnly
	return "aggregate:range", f.err
}

func newRouter(svc *fakeService, enq Enqueuer) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, enq)
	r := chi.NewRouter()
	r.Route("/api/aggregates", h.MountRoutes)
	r.Route("/api/tools", h.MountTools)
	return r
}

func TestListParsesQuery(t *testing.T) {
	svc := &fakeService{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/aggregates?from_dt=2024-03-15&to_dt=2024-03-16&monitor_region=Kenya&monitor_region=Nairobi&sort_order=desc", nil)
	newRouter(svc, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, aggregates.Hourly, svc.query.Timespan)
	assert.Equal(t, []string{"Kenya", "Nairobi"}, svc.query.Regions)
	assert.False(t, svc.query.AllRegions)
	assert.True(t, svc.query.Descending)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestListRejectsBadTimespan(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/aggregates?from_dt=2024-03-15&to_dt=2024-03-16&timespan=Weekly", nil)
	newRouter(&fakeService{}, nil).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDailyEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/aggregates/daily?from_date=2024-03-01&to_date=2024-03-31&monitor_region=Kenya", nil)
	newRouter(&fakeService{}, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]aggregates.Aggregate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Kenya", body["2024-03-15"].Region)
}

func TestReadingUpdateQueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	rr := httptest.NewRecorder()
	body := `{"from_dt":"2024-03-15 00:00:00","to_dt":"2024-03-15 12:00:00","daily_only":true}`
	newRouter(&fakeService{}, enq).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/tools/reading-update", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.True(t, enq.dailyOnly)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), enq.to)
	assert.Contains(t, rr.Body.String(), "aggregate:range")
}

func TestReadingUpdateRejects(t *testing.T) {
	cases := map[string]struct {
		body   string
		enq    *fakeEnqueuer
		status int
	}{
		"missing to":    {body: `{"from_dt":"2024-03-15"}`, enq: &fakeEnqueuer{}, status: http.StatusBadRequest},
		"reversed":      {body: `{"from_dt":"2024-03-15","to_dt":"2024-03-14"}`, enq: &fakeEnqueuer{}, status: http.StatusBadRequest},
		"unknown field": {body: `{"from_dt":"2024-03-15","to_dt":"2024-03-16","x":1}`, enq: &fakeEnqueuer{}, status: http.StatusBadRequest},
		"already queued": {
			body:   `{"from_dt":"2024-03-15","to_dt":"2024-03-16"}`,
			enq:    &fakeEnqueuer{err: fmt.Errorf("jobs: range aggregation already in queue: %w", httpx.ErrConflict)},
			status: http.StatusConflict,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/tools/reading-update", strings.NewReader(tc.body))
			newRouter(&fakeService{}, tc.enq).ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestReadingUpdateWithoutQueue(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tools/reading-update", strings.NewReader(`{}`))
	newRouter(&fakeService{}, nil).ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
