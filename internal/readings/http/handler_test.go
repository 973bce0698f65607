package readingshttp

import (
	"context"
	"encoding/json"
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

	"github.com/odyssey-erp/aqp/internal/aqi"
	"github.com/odyssey-erp/aqp/internal/readings"
)

type fakeService struct {
	created readings.CreateInput
	window  int
	forDT   time.Time
	query   readings.Query
	deleted int64
}

func (f *fakeService) Create(ctx context.Context, in readings.CreateInput) (readings.Reading, error) {
	f.created = in
	if in.Monitor == "dup" {
		return readings.Reading{}, readings.ErrDuplicateReading
	}
	return readings.Reading{ID: 7, Monitor: in.Monitor, ReadingDT: in.ReadingDT, PM25: in.PM25}, nil
}

func (f *fakeService) Get(ctx context.Context, id int64) (readings.Reading, error) {
	if id != 7 {
		return readings.Reading{}, readings.ErrNotFound
	}
	return readings.Reading{ID: 7, Monitor: "AM-1"}, nil
}

func (f *fakeService) Delete(ctx context.Context, id int64) error {
	f.deleted = id
	return nil
}

func (f *fakeService) LatestReadingDT(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

func (f *fakeService) LatestReadings(ctx context.Context, forDT time.Time, window int) (readings.Latest, error) {
	f.forDT, f.window = forDT, window
	if window > 1440 {
		return readings.Latest{}, readings.ErrInvalidWindow
	}
	return readings.Latest{}, nil
}

func (f *fakeService) MonitorReadings(ctx context.Context, q readings.Query) ([]readings.Reading, error) {
	f.query = q
	if q.From.IsZero() {
		return nil, readings.ErrInvalidRange
	}
	return nil, nil
}

func (f *fakeService) DailyAverages(ctx context.Context, fromDate, toDate time.Time, monitor string) (map[string]aqi.Daily, error) {
	return map[string]aqi.Daily{"2024-03-15": {Date: "2024-03-15", PM25: 12}}, nil
}

func newRouter(svc *fakeService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/api/readings", h.MountRoutes)
	return r
}

func serve(svc *fakeService, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	newRouter(svc).ServeHTTP(rr, httptest.NewRequest(method, target, reader))
	return rr
}

func TestCreateReading(t *testing.T) {
	svc := &fakeService{}
	rr := serve(svc, http.MethodPost, "/api/readings", `{"air_monitor":"AM-1","reading_dt":"2024-03-15T10:00:00Z","pm_2_5":12.5}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 12.5, svc.created.PM25)

	var body readings.Reading
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body.ID)

	rr = serve(svc, http.MethodPost, "/api/readings", `{"air_monitor":"dup","reading_dt":"2024-03-15T10:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLatestParsesWindow(t *testing.T) {
	svc := &fakeService{}
	rr := serve(svc, http.MethodGet, "/api/readings/latest?for_datetime=2024-03-15+10:00:00&window_minutes=30", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 30, svc.window)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), svc.forDT)

	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodGet, "/api/readings/latest?window_minutes=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodGet, "/api/readings/latest?window_minutes=2000", "").Code)
}

func TestLatestRejectsNonPositiveWindow(t *testing.T) {
	for _, raw := range []string{"0", "-5"} {
		svc := &fakeService{window: -1}
		rr := serve(svc, http.MethodGet, "/api/readings/latest?window_minutes="+raw, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, raw)
		assert.Contains(t, rr.Body.String(), "between 1 and 1440", raw)
		assert.Equal(t, -1, svc.window, "service must not be called for %s", raw)
	}

	svc := &fakeService{window: -1}
	rr := serve(svc, http.MethodGet, "/api/readings/latest", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, svc.window)
}

func TestListRequiresRange(t *testing.T) {
	svc := &fakeService{}
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodGet, "/api/readings", "").Code)

	rr := serve(svc, http.MethodGet, "/api/readings?from_dt=2024-03-15&to_dt=2024-03-16&air_monitor=AM-1&sort_order=desc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"AM-1"}, svc.query.Monitors)
	assert.True(t, svc.query.Descending)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestGetAndDelete(t *testing.T) {
	svc := &fakeService{}
	assert.Equal(t, http.StatusOK, serve(svc, http.MethodGet, "/api/readings/7", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/api/readings/8", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodGet, "/api/readings/x", "").Code)

	assert.Equal(t, http.StatusNoContent, serve(svc, http.MethodDelete, "/api/readings/7", "").Code)
	assert.EqualValues(t, 7, svc.deleted)
}

func TestLatestDTAndDaily(t *testing.T) {
	svc := &fakeService{}
	rr := serve(svc, http.MethodGet, "/api/readings/latest-dt", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"latest_reading_dt":null}`, rr.Body.String())

	rr = serve(svc, http.MethodGet, "/api/readings/daily?air_monitor=AM-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"2024-03-15"`)
}
