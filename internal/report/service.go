package report

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/aqp/internal/events"
)

// LoadEvent is published before the report runs so handlers can fill filters.
type LoadEvent struct {
	Filters *Filters
}

// CheckRowEvent is published whenever the checked rows of a view change.
type CheckRowEvent struct {
	View    *ViewState
	Checked []int
}

// ViewRepository persists view state.
type ViewRepository interface {
	Save(ctx context.Context, v *ViewState) error
	Load(ctx context.Context, id string) (*ViewState, error)
}

type runner interface {
	Run(ctx context.Context, f Filters) (Result, error)
}

// Service runs the report and keeps view state in sync with row selection.
type Service struct {
	runner    runner
	dates     *Initializer
	views     ViewRepository
	bus       *events.Bus
	projector Projector
	logger    *slog.Logger
}

// NewService wires the report service and registers its event handlers on bus.
func NewService(runner runner, dates *Initializer, views ViewRepository, bus *events.Bus, logger *slog.Logger) *Service {
	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{runner: runner, dates: dates, views: views, bus: bus, logger: logger}
	events.On(bus, s.onLoad)
	events.On(bus, s.onCheckRow)
	return s
}

func (s *Service) onLoad(ctx context.Context, e LoadEvent) error {
	if s.dates == nil || e.Filters == nil {
		return nil
	}
	_, err := s.dates.Apply(ctx, e.Filters)
	return err
}

func (s *Service) onCheckRow(ctx context.Context, e CheckRowEvent) error {
	v := e.View
	v.Checked = uniqueRows(e.Checked)
	data := s.projector.Project(v.Result.Table(), v.Checked, v.ChartOptions.Labels())
	v.ChartOptions = v.ChartOptions.Merge(ChartOptions{Data: &data})
	v.RawChartData = &data
	return nil
}

func uniqueRows(rows []int) []int {
	out := make([]int, 0, len(rows))
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// Defaults returns the default filters with the date range filled in.
func (s *Service) Defaults(ctx context.Context) (Filters, error) {
	f := DefaultFilters()
	if err := events.Publish(ctx, s.bus, LoadEvent{Filters: &f}); err != nil {
		return Filters{}, err
	}
	return f, nil
}

// Run executes the report, filling missing dates first.
func (s *Service) Run(ctx context.Context, f Filters) (Filters, Result, error) {
	if err := events.Publish(ctx, s.bus, LoadEvent{Filters: &f}); err != nil {
		return f, Result{}, err
	}
	result, err := s.runner.Run(ctx, f)
	return f, result, err
}

// CreateView runs the report, checks the total row and stores the view.
func (s *Service) CreateView(ctx context.Context, f Filters) (*ViewState, error) {
	f, result, err := s.Run(ctx, f)
	if err != nil {
		return nil, err
	}
	v := NewViewState(f, result)
	if err := events.Publish(ctx, s.bus, CheckRowEvent{View: v, Checked: []int{0}}); err != nil {
		return nil, err
	}
	if err := s.views.Save(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Debug("report view created", slog.String("view", v.ID), slog.Int("rows", len(v.Result.Rows)))
	return v, nil
}

// CheckRows replaces the checked rows of a view and re-projects the chart.
func (s *Service) CheckRows(ctx context.Context, id string, rows []int) (*ViewState, error) {
	v, err := s.views.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := events.Publish(ctx, s.bus, CheckRowEvent{View: v, Checked: rows}); err != nil {
		return nil, err
	}
	if err := s.views.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// View loads a stored view.
func (s *Service) View(ctx context.Context, id string) (*ViewState, error) {
	return s.views.Load(ctx, id)
}
