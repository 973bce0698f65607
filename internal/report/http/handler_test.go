package reporthttp

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

	"github.com/odyssey-erp/aqp/internal/report"
)

type fakeService struct {
	views   map[string]*report.ViewState
	ran     report.Filters
	checked []int
}

func (f *fakeService) Defaults(ctx context.Context) (report.Filters, error) {
	d := report.DefaultFilters()
	d.FromDate, d.ToDate = "2023-03-15", "2024-03-15"
	return d, nil
}

func (f *fakeService) Run(ctx context.Context, filters report.Filters) (report.Filters, report.Result, error) {
	f.ran = filters
	if err := filters.Validate(); err != nil {
		return filters, report.Result{}, err
	}
	return filters, sampleResult(), nil
}

func (f *fakeService) CreateView(ctx context.Context, filters report.Filters) (*report.ViewState, error) {
	filters, result, err := f.Run(ctx, filters)
	if err != nil {
		return nil, err
	}
	v := report.NewViewState(filters, result)
	v.Checked = []int{0}
	v.RawChartData = &report.ChartData{
		Labels:   []string{"W10 2024", "W11 2024"},
		Datasets: []report.Dataset{{Name: "Average", Values: []float64{12, 18}}},
	}
	f.views[v.ID] = v
	return v, nil
}

func (f *fakeService) CheckRows(ctx context.Context, id string, rows []int) (*report.ViewState, error) {
	v, err := f.View(ctx, id)
	if err != nil {
		return nil, err
	}
	f.checked = rows
	v.Checked = rows
	return v, nil
}

func (f *fakeService) View(ctx context.Context, id string) (*report.ViewState, error) {
	v, ok := f.views[id]
	if !ok {
		return nil, report.ErrViewNotFound
	}
	return v, nil
}

func sampleResult() report.Result {
	return report.Result{
		Columns: []report.Column{
			{Label: "Monitor Region", Fieldname: "entity", Fieldtype: "Link"},
			{Label: "Average", Fieldname: "average", Fieldtype: "Float"},
			{Label: "W10 2024", Fieldname: "w10_2024", Fieldtype: "Float", PeriodColumn: true},
			{Label: "W11 2024", Fieldname: "w11_2024", Fieldtype: "Float", PeriodColumn: true},
		},
		Rows: []report.Row{{Entity: "Average", Values: map[string]float64{"average": 15, "w10_2024": 12, "w11_2024": 18}}},
		Chart: report.ChartOptions{Type: "line", Precision: 1, Data: &report.ChartData{Labels: []string{"W10 2024", "W11 2024"}}},
	}
}

type fixedLatest struct{ dt time.Time }

func (f fixedLatest) LatestReadingDT(ctx context.Context) (*time.Time, error) { return &f.dt, nil }

type countingRuns struct{ runs []string }

func (c *countingRuns) ReportRun(treeType, periodRange string) {
	c.runs = append(c.runs, treeType+"/"+periodRange)
}

type fakePDF struct{}

func (fakePDF) Render(ctx context.Context, v *report.ViewState) ([]byte, error) {
	return []byte("%PDF-" + v.ID), nil
}

const base = "/reports/air-quality-analytics"

func newRouter(svc *fakeService, pdf PDFService, runs RunRecorder) http.Handler {
	latest := fixedLatest{dt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, latest, pdf, runs)
	r := chi.NewRouter()
	r.Route(base, h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.7:4444"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createView(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, base+"/views", `{"from_date":"2024-03-04","to_date":"2024-03-15"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var payload struct {
		View            report.ViewState `json:"view"`
		LatestReadingDT *time.Time       `json:"latest_reading_dt"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.NotNil(t, payload.LatestReadingDT)
	return payload.View.ID
}

func TestFiltersAndDefaults(t *testing.T) {
	h := newRouter(&fakeService{views: map[string]*report.ViewState{}}, nil, nil)

	rr := do(t, h, http.MethodGet, base+"/filters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"fieldname":"tree_type"`)

	rr = do(t, h, http.MethodGet, base+"/defaults", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"from_date":"2023-03-15"`)
}

func TestRunReport(t *testing.T) {
	svc := &fakeService{views: map[string]*report.ViewState{}}
	runs := &countingRuns{}
	h := newRouter(svc, nil, runs)

	rr := do(t, h, http.MethodGet, base+"?from_date=2024-03-04&to_date=2024-03-15&range=Monthly", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, report.RangeMonthly, svc.ran.Range)
	assert.Equal(t, []string{"Monitor Region/Monthly"}, runs.runs)

	rr = do(t, h, http.MethodGet, base+"?from_date=2024-03-15&to_date=2024-03-04", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, base+"?from_date=2024-03-15&to_date=2024-03-16&range=Hourly", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Range":"oneof"`)
}

func TestViewLifecycle(t *testing.T) {
	svc := &fakeService{views: map[string]*report.ViewState{}}
	h := newRouter(svc, nil, &countingRuns{})
	id := createView(t, h)

	rr := do(t, h, http.MethodPost, base+"/views/"+id+"/checked", `{"rows":[0,0]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []int{0, 0}, svc.checked)

	rr = do(t, h, http.MethodPost, base+"/views/"+id+"/checked", `{"rows":[-1]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, base+"/views/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"raw_chart_data"`)

	rr = do(t, h, http.MethodGet, base+"/views/unknown", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChartAndExports(t *testing.T) {
	svc := &fakeService{views: map[string]*report.ViewState{}}
	h := newRouter(svc, fakePDF{}, nil)
	id := createView(t, h)

	rr := do(t, h, http.MethodGet, base+"/views/"+id+"/chart.svg", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "<svg"))

	rr = do(t, h, http.MethodGet, base+"/views/"+id+"/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "air-quality-analytics.csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Monitor Region,Average,W10 2024,W11 2024\n"))

	rr = do(t, h, http.MethodGet, base+"/views/"+id+"/export.xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))

	rr = do(t, h, http.MethodGet, base+"/views/"+id+"/export.pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "%PDF-"+id, rr.Body.String())
}

func TestPDFWithoutRenderer(t *testing.T) {
	svc := &fakeService{views: map[string]*report.ViewState{}}
	h := newRouter(svc, nil, nil)
	id := createView(t, h)
	rr := do(t, h, http.MethodGet, base+"/views/"+id+"/export.pdf", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestExportRateLimit(t *testing.T) {
	svc := &fakeService{views: map[string]*report.ViewState{}}
	h := newRouter(svc, nil, nil)
	id := createView(t, h)
	for i := 0; i < ExportLimit; i++ {
		rr := do(t, h, http.MethodGet, base+"/views/"+id+"/export.csv", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, h, http.MethodGet, base+"/views/"+id+"/export.csv", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = do(t, h, http.MethodGet, base+"/views/"+id+"/chart.svg", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
