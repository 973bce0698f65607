package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/readings"
	"github.com/odyssey-erp/aqp/internal/regions"
)

type fakeReadings struct {
	rows  []readings.Reading
	query readings.Query
}

func (f *fakeReadings) MonitorReadings(ctx context.Context, q readings.Query) ([]readings.Reading, error) {
	f.query = q
	in := make(map[string]bool)
	for _, m := range q.Monitors {
		in[m] = true
	}
	var out []readings.Reading
	for _, r := range f.rows {
		if r.ReadingDT.Before(q.From) || r.ReadingDT.After(q.To) {
			continue
		}
		if q.AnyMonitor || in[r.Monitor] {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAggregates struct {
	rows  []aggregates.Aggregate
	query aggregates.ListQuery
}

func (f *fakeAggregates) List(ctx context.Context, q aggregates.ListQuery) ([]aggregates.Aggregate, error) {
	f.query = q
	in := make(map[string]bool)
	for _, r := range q.Regions {
		in[r] = true
	}
	var out []aggregates.Aggregate
	for _, a := range f.rows {
		if a.Timespan == q.Timespan && (q.AllRegions || in[a.Region]) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeTree struct{ tree *regions.Tree }

func (f fakeTree) Tree(ctx context.Context) (*regions.Tree, error) { return f.tree, nil }

type fakeMonitors map[string][]string

func (f fakeMonitors) InRegions(ctx context.Context, names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		out = append(out, f[n]...)
	}
	return out, nil
}

func newExecutor(t *testing.T, r *fakeReadings, a *fakeAggregates) *Executor {
	t.Helper()
	tree, err := regions.BuildTree([]regions.Region{
		{Name: "Global"},
		{Name: "Kenya", Parent: "Global"},
		{Name: "Nairobi", Parent: "Kenya"},
		{Name: "Uganda", Parent: "Global"},
	})
	require.NoError(t, err)
	return NewExecutor(r, a, fakeTree{tree: tree}, fakeMonitors{"Nairobi": {"AM-1"}, "Uganda": {"AM-2"}})
}

func reading(monitor, at string, pm25 float64) readings.Reading {
	dt, err := time.Parse(time.DateTime, at)
	if err != nil {
		panic(err)
	}
	return readings.Reading{Monitor: monitor, ReadingDT: dt, PM25: pm25}
}

func monthlyFilters(tree, value string) Filters {
	return Filters{TreeType: tree, ValueField: value, Range: RangeMonthly, FromDate: "2024-01-01", ToDate: "2024-02-29"}
}

func monitorReadings() *fakeReadings {
	return &fakeReadings{rows: []readings.Reading{
		reading("AM-2", "2024-02-10 08:00:00", 40),
		reading("AM-1", "2024-01-10 08:00:00", 10),
		reading("AM-1", "2024-01-20 08:00:00", 20),
		reading("AM-1", "2024-02-05 08:00:00", 0),
		reading("AM-1", "2024-02-29 23:30:00", 0),
		reading("AM-1", "2024-03-01 00:00:00", 90),
	}}
}

func TestRunAirMonitorPM25(t *testing.T) {
	src := monitorReadings()
	result, err := newExecutor(t, src, &fakeAggregates{}).Run(context.Background(), monthlyFilters(TreeAirMonitor, ValuePM25))
	require.NoError(t, err)

	fields := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		fields[i] = c.Fieldname
	}
	assert.Equal(t, []string{"entity", "average", "jan_2024", "feb_2024"}, fields)
	assert.Equal(t, "Air Monitor", result.Columns[0].Label)
	assert.Equal(t, "Float", result.Columns[2].Fieldtype)
	assert.True(t, result.Columns[3].PeriodColumn)
	assert.False(t, result.Columns[1].PeriodColumn)
	assert.True(t, src.query.AnyMonitor)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999000, time.UTC), src.query.To)

	want := []Row{
		{Entity: "Average", Values: map[string]float64{"average": 70.0 / 3, "jan_2024": 15, "feb_2024": 40}},
		{Entity: "AM-1", Indent: 1, Values: map[string]float64{"average": 15, "jan_2024": 15, "feb_2024": 0}},
		{Entity: "AM-2", Indent: 1, Values: map[string]float64{"average": 40, "jan_2024": 0, "feb_2024": 40}},
	}
	if diff := cmp.Diff(want, result.Rows, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "line", result.Chart.Type)
	assert.Equal(t, 1, result.Chart.Precision)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, result.Chart.Labels())
	assert.Empty(t, result.Chart.Data.Datasets)
}

func TestRunAirMonitorAQI(t *testing.T) {
	result, err := newExecutor(t, monitorReadings(), &fakeAggregates{}).Run(context.Background(), monthlyFilters(TreeAirMonitor, ValueAQI))
	require.NoError(t, err)
	assert.Equal(t, "Int", result.Chart.Fieldtype)
	total := result.Rows[0].Values
	assert.Equal(t, 75.0, total["average"])
	assert.Equal(t, 57.0, total["jan_2024"])
	assert.Equal(t, 112.0, total["feb_2024"])

	table := result.Table()
	assert.Equal(t, "75", table.Cell(0, 1).Content)
	assert.Equal(t, []int{2, 3}, table.PeriodIndices())
}

func TestRunAirMonitorWithinRegion(t *testing.T) {
	src := monitorReadings()
	f := monthlyFilters(TreeAirMonitor, ValuePM25)
	f.MonitorRegion = "Kenya"
	result, err := newExecutor(t, src, &fakeAggregates{}).Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"AM-1"}, src.query.Monitors)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "AM-1", result.Rows[1].Entity)
}

func TestRunMonitorRegionUsesDailyAggregates(t *testing.T) {
	jan10 := day("2024-01-10")
	aggs := &fakeAggregates{rows: []aggregates.Aggregate{
		{Region: "Kenya", Timespan: aggregates.Daily, ReadingDT: jan10},
		{Region: "Nairobi", Timespan: aggregates.Daily, ReadingDT: jan10},
		{Region: "Uganda", Timespan: aggregates.Daily, ReadingDT: jan10},
		{Region: "Kenya", Timespan: aggregates.Hourly, ReadingDT: jan10},
	}}
	aggs.rows[0].Sum, aggs.rows[0].Count = 30, 3
	aggs.rows[1].Sum, aggs.rows[1].Count = 10, 1
	aggs.rows[2].Sum, aggs.rows[2].Count = 99, 1
	aggs.rows[3].Sum, aggs.rows[3].Count = 500, 1

	f := monthlyFilters(TreeMonitorRegion, ValuePM25)
	f.MonitorRegion = "Kenya"
	result, err := newExecutor(t, &fakeReadings{}, aggs).Run(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kenya", "Nairobi"}, aggs.query.Regions)
	assert.Equal(t, aggregates.Daily, aggs.query.Timespan)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, 10.0, result.Rows[0].Values["jan_2024"])
	assert.Equal(t, 10.0, result.Rows[1].Values["jan_2024"])
	assert.Equal(t, "Nairobi", result.Rows[2].Entity)
}

func TestRunRejects(t *testing.T) {
	exec := newExecutor(t, &fakeReadings{}, &fakeAggregates{})
	f := monthlyFilters(TreeMonitorRegion, ValuePM25)
	f.MonitorRegion = "Atlantis"
	_, err := exec.Run(context.Background(), f)
	assert.ErrorIs(t, err, ErrRegionNotFound)

	f = monthlyFilters(TreeMonitorRegion, ValuePM25)
	f.FromDate = ""
	_, err = exec.Run(context.Background(), f)
	assert.Error(t, err)
}

func TestRunWithoutData(t *testing.T) {
	result, err := newExecutor(t, &fakeReadings{}, &fakeAggregates{}).Run(context.Background(), monthlyFilters(TreeMonitorRegion, ValuePM25))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Average", result.Rows[0].Entity)
	assert.Zero(t, result.Rows[0].Values["average"])
}
