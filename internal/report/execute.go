package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/aqi"
	"github.com/odyssey-erp/aqp/internal/readings"
	"github.com/odyssey-erp/aqp/internal/regions"
)

const (
	entityField  = "entity"
	averageField = "average"
	totalLabel   = "Average"
)

var ErrRegionNotFound = errors.New("report: monitor region not found")

// ReadingSource loads raw monitor readings.
type ReadingSource interface {
	MonitorReadings(ctx context.Context, q readings.Query) ([]readings.Reading, error)
}

// AggregateSource loads stored reading aggregates.
type AggregateSource interface {
	List(ctx context.Context, q aggregates.ListQuery) ([]aggregates.Aggregate, error)
}

// TreeSource loads the region hierarchy.
type TreeSource interface {
	Tree(ctx context.Context) (*regions.Tree, error)
}

// MonitorSource resolves the monitors assigned to regions.
type MonitorSource interface {
	InRegions(ctx context.Context, regions []string) ([]string, error)
}

// Executor runs the report against readings or daily aggregates.
type Executor struct {
	readings   ReadingSource
	aggregates AggregateSource
	tree       TreeSource
	monitors   MonitorSource
}

// NewExecutor wires the report executor.
func NewExecutor(r ReadingSource, a AggregateSource, t TreeSource, m MonitorSource) *Executor {
	return &Executor{readings: r, aggregates: a, tree: t, monitors: m}
}

// entry is one accumulated value attributed to an entity on a date.
type entry struct {
	entity string
	date   time.Time
	sum    float64
	count  int
}

type bucket struct {
	sum   float64
	count int
}

// Run validates the filters and builds columns, rows and the empty chart.
func (e *Executor) Run(ctx context.Context, f Filters) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	from, to := f.Dates()
	ends := PeriodEndDates(from, to, f.Range)
	columns := buildColumns(f, ends)

	entries, err := e.entries(ctx, f, from, to)
	if err != nil {
		return Result{}, err
	}
	rows := buildRows(f, ends, entries)

	var labels []string
	for _, col := range columns {
		if col.PeriodColumn {
			labels = append(labels, col.Label)
		}
	}
	return Result{Columns: columns, Rows: rows, Chart: emptyChart(labels, valueFieldtype(f.ValueField))}, nil
}

func valueFieldtype(valueField string) string {
	if valueField == ValueAQI {
		return "Int"
	}
	return "Float"
}

func buildColumns(f Filters, ends []time.Time) []Column {
	fieldtype := valueFieldtype(f.ValueField)
	columns := []Column{
		{Label: f.TreeType, Fieldname: entityField, Fieldtype: "Link", Options: f.TreeType, Width: 200},
		{Label: totalLabel, Fieldname: averageField, Fieldtype: fieldtype, Precision: "1", Width: 80},
	}
	for _, end := range ends {
		label := PeriodLabel(end, f.Range)
		columns = append(columns, Column{
			Label:        label,
			Fieldname:    Scrub(label),
			Fieldtype:    fieldtype,
			Precision:    "1",
			Width:        80,
			PeriodColumn: true,
		})
	}
	return columns
}

// regionScope returns the subtree of the region filter, or nil for every region.
func (e *Executor) regionScope(ctx context.Context, f Filters) ([]string, error) {
	if f.MonitorRegion == "" {
		return nil, nil
	}
	tree, err := e.tree.Tree(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := tree.Subtree(f.MonitorRegion)
	if errors.Is(err, regions.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, f.MonitorRegion)
	}
	return scope, err
}

func (e *Executor) entries(ctx context.Context, f Filters, from, to time.Time) ([]entry, error) {
	start, end := aggregates.DayBounds(from, to)
	scope, err := e.regionScope(ctx, f)
	if err != nil {
		return nil, err
	}

	if f.TreeType == TreeAirMonitor {
		q := readings.Query{From: start, To: end, AnyMonitor: scope == nil}
		if scope != nil {
			if q.Monitors, err = e.monitors.InRegions(ctx, scope); err != nil {
				return nil, err
			}
		}
		list, err := e.readings.MonitorReadings(ctx, q)
		if err != nil {
			return nil, err
		}
		out := make([]entry, 0, len(list))
		for _, m := range list {
			out = append(out, rawEntry(m.Monitor, m.ReadingDT, m.PM25))
		}
		return out, nil
	}

	list, err := e.aggregates.List(ctx, aggregates.ListQuery{
		From:       start,
		To:         end,
		Timespan:   aggregates.Daily,
		Regions:    scope,
		AllRegions: scope == nil,
	})
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(list))
	for _, a := range list {
		out = append(out, entry{entity: a.Region, date: a.ReadingDT, sum: a.Sum, count: a.Count})
	}
	return out, nil
}

func rawEntry(entity string, at time.Time, pm25 float64) entry {
	e := entry{entity: entity, date: at, sum: pm25}
	if pm25 != 0 {
		e.count = 1
	}
	return e
}

func buildRows(f Filters, ends []time.Time, entries []entry) []Row {
	periodic := make(map[string]map[string]*bucket)
	for _, d := range entries {
		label := PeriodLabel(d.date, f.Range)
		byPeriod, ok := periodic[d.entity]
		if !ok {
			byPeriod = make(map[string]*bucket)
			periodic[d.entity] = byPeriod
		}
		b, ok := byPeriod[label]
		if !ok {
			b = &bucket{}
			byPeriod[label] = b
		}
		b.sum += d.sum
		b.count += d.count
	}

	entities := make([]string, 0, len(periodic))
	for entity := range periodic {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	convert := func(sum float64, count int) float64 {
		if count == 0 {
			return 0
		}
		mean := sum / float64(count)
		if f.ValueField == ValueAQI {
			return float64(aqi.MustPM25(mean))
		}
		return mean
	}

	total := Row{Entity: totalLabel, Values: map[string]float64{}}
	totalPeriods := make(map[string]*bucket)
	var grand bucket
	rows := []Row{{}}

	for _, entity := range entities {
		row := Row{Entity: entity, Indent: 1, Values: map[string]float64{}}
		var own bucket
		for _, end := range ends {
			label := PeriodLabel(end, f.Range)
			field := Scrub(label)
			b := periodic[entity][label]
			if b == nil {
				b = &bucket{}
			}
			row.Values[field] = convert(b.sum, b.count)
			own.sum += b.sum
			own.count += b.count

			tp, ok := totalPeriods[field]
			if !ok {
				tp = &bucket{}
				totalPeriods[field] = tp
			}
			tp.sum += b.sum
			tp.count += b.count
			grand.sum += b.sum
			grand.count += b.count
		}
		row.Values[averageField] = convert(own.sum, own.count)
		rows = append(rows, row)
	}

	total.Values[averageField] = convert(grand.sum, grand.count)
	for _, end := range ends {
		field := Scrub(PeriodLabel(end, f.Range))
		b := totalPeriods[field]
		if b == nil {
			b = &bucket{}
		}
		total.Values[field] = convert(b.sum, b.count)
	}
	rows[0] = total
	return rows
}

func formatValue(v float64, fieldtype string) string {
	if fieldtype == "Int" {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
