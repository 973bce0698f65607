package readings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/aqi"
	"github.com/odyssey-erp/aqp/internal/events"
	"github.com/odyssey-erp/aqp/internal/monitors"
	"github.com/odyssey-erp/aqp/internal/regions"
)

// MaxWindowMinutes bounds the LatestReadings lookback.
const MaxWindowMinutes = 1440

// Store is the persistence contract used by the service.
type Store interface {
	Get(ctx context.Context, id int64) (Reading, error)
	Insert(ctx context.Context, m Reading) (Reading, error)
	Delete(ctx context.Context, id int64) (Reading, error)
	LatestDT(ctx context.Context) (*time.Time, error)
	Find(ctx context.Context, q Query) ([]Reading, error)
}

// MonitorService is the subset of the monitor service readings depend on.
type MonitorService interface {
	Get(ctx context.Context, name string) (monitors.Monitor, error)
	OnlineAt(ctx context.Context, at time.Time) ([]monitors.Monitor, error)
	RefreshReadingBounds(ctx context.Context, name string) error
}

// RegionSource lists enabled regions.
type RegionSource interface {
	Enabled(ctx context.Context) ([]regions.Region, error)
}

// AggregateSource lists reading aggregates.
type AggregateSource interface {
	List(ctx context.Context, q aggregates.ListQuery) ([]aggregates.Aggregate, error)
}

// CreatedEvent is published after a reading is stored.
type CreatedEvent struct {
	Reading Reading
}

// DeletedEvent is published after a reading is removed.
type DeletedEvent struct {
	Reading Reading
}

// Options configures optional collaborators of the service.
type Options struct {
	Cache     *LatestCache
	Bus       *events.Bus
	WindowMax int
	Logger    *slog.Logger
}

// Service implements monitor reading business rules.
type Service struct {
	store      Store
	monitors   MonitorService
	regions    RegionSource
	aggregates AggregateSource
	cache      *LatestCache
	bus        *events.Bus
	windowMax  int
	logger     *slog.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// NewService wires the reading service.
func NewService(store Store, mons MonitorService, regs RegionSource, aggs AggregateSource, opts Options) *Service {
	if opts.WindowMax <= 0 || opts.WindowMax > MaxWindowMinutes {
		opts.WindowMax = MaxWindowMinutes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:      store,
		monitors:   mons,
		regions:    regs,
		aggregates: aggs,
		cache:      opts.Cache,
		bus:        opts.Bus,
		windowMax:  opts.WindowMax,
		logger:     opts.Logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// Create validates and stores a reading with its AQI, then refreshes the
// monitor's reading bounds.
func (s *Service) Create(ctx context.Context, in CreateInput) (Reading, error) {
	if err := s.validate.Struct(in); err != nil {
		return Reading{}, err
	}
	if _, err := s.monitors.Get(ctx, in.Monitor); err != nil {
		if errors.Is(err, monitors.ErrNotFound) {
			return Reading{}, fmt.Errorf("%w: %s", ErrMonitorNotFound, in.Monitor)
		}
		return Reading{}, err
	}

	m := Reading{
		Monitor:          in.Monitor,
		ReadingDT:        in.ReadingDT,
		PM25:             in.PM25,
		Temperature:      in.Temperature,
		RelativeHumidity: in.RelativeHumidity,
		CO2:              in.CO2,
	}
	m.AQI, m.Category = aqi.PM25Index(m.PM25)

	created, err := s.store.Insert(ctx, m)
	if err != nil {
		return Reading{}, err
	}
	if err := s.afterChange(ctx, created); err != nil {
		return created, err
	}
	if err := events.Publish(ctx, s.bus, CreatedEvent{Reading: created}); err != nil {
		s.logger.Warn("reading created handlers", slog.Any("error", err), slog.Int64("reading", created.ID))
	}
	return created, nil
}

// Delete removes a reading and refreshes the monitor's reading bounds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.afterChange(ctx, deleted); err != nil {
		return err
	}
	if err := events.Publish(ctx, s.bus, DeletedEvent{Reading: deleted}); err != nil {
		s.logger.Warn("reading deleted handlers", slog.Any("error", err), slog.Int64("reading", id))
	}
	return nil
}

func (s *Service) afterChange(ctx context.Context, m Reading) error {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("clear latest reading cache", slog.Any("error", err))
	}
	if err := s.monitors.RefreshReadingBounds(ctx, m.Monitor); err != nil {
		return fmt.Errorf("readings: refresh bounds of %s: %w", m.Monitor, err)
	}
	return nil
}

// Get returns a single reading.
func (s *Service) Get(ctx context.Context, id int64) (Reading, error) {
	return s.store.Get(ctx, id)
}

// LatestReadingDT returns the newest reading timestamp, or nil without readings.
func (s *Service) LatestReadingDT(ctx context.Context) (*time.Time, error) {
	return s.cache.Get(ctx, s.store.LatestDT)
}

// MonitorReadings returns readings of enabled monitors between q.From and q.To.
func (s *Service) MonitorReadings(ctx context.Context, q Query) ([]Reading, error) {
	if q.From.IsZero() || q.To.IsZero() {
		return nil, ErrInvalidRange
	}
	return s.store.Find(ctx, q)
}

// DailyAverages groups the readings of monitor, or of every monitor when empty,
// by calendar day. Missing dates default to today.
func (s *Service) DailyAverages(ctx context.Context, fromDate, toDate time.Time, monitor string) (map[string]aqi.Daily, error) {
	today := s.now()
	if fromDate.IsZero() {
		fromDate = today
	}
	if toDate.IsZero() {
		toDate = today
	}
	from, to := aggregates.DayBounds(fromDate, toDate)
	q := Query{From: from, To: to, AnyMonitor: monitor == ""}
	if monitor != "" {
		q.Monitors = []string{monitor}
	}
	list, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	samples := make([]aqi.Sample, len(list))
	for i, m := range list {
		samples[i] = aqi.Sample{At: m.ReadingDT, PM25: m.PM25}
	}
	return aqi.DailyAggregates(samples), nil
}

// LatestReadings returns the newest reading of each monitor and the newest
// hourly aggregate of each region inside the window ending at forDT. A zero
// forDT uses the latest reading time; window 0 uses DefaultWindowMinutes.
func (s *Service) LatestReadings(ctx context.Context, forDT time.Time, window int) (Latest, error) {
	out := Latest{
		Aggregates: []aggregates.Aggregate{},
		Readings:   []Reading{},
		Monitors:   map[string]monitors.Monitor{},
	}
	if forDT.IsZero() {
		latest, err := s.LatestReadingDT(ctx)
		if err != nil {
			return out, err
		}
		if latest != nil {
			forDT = *latest
		}
	}

	regs, err := s.regions.Enabled(ctx)
	if err != nil {
		return out, err
	}
	out.Regions = regs
	if forDT.IsZero() {
		return out, nil
	}

	if window == 0 {
		window = DefaultWindowMinutes
	}
	if window < 0 || window > s.windowMax {
		return out, fmt.Errorf("%w (max %d)", ErrInvalidWindow, s.windowMax)
	}

	mons, err := s.monitors.OnlineAt(ctx, forDT)
	if err != nil {
		return out, err
	}
	for _, m := range mons {
		m.HasReading = false
		out.Monitors[m.Name] = m
	}

	to := forDT
	from := to.Add(-time.Duration(window) * time.Minute)
	out.FromDT, out.ToDT = &from, &to

	list, err := s.store.Find(ctx, Query{From: from, To: to, AnyMonitor: true, Descending: true})
	if err != nil {
		return out, err
	}
	if len(list) > 0 {
		latest := list[0].ReadingDT
		out.LatestReadingDT = &latest
	}
	seen := make(map[string]bool)
	for _, m := range list {
		if seen[m.Monitor] {
			continue
		}
		seen[m.Monitor] = true
		out.Readings = append(out.Readings, m)
		if mon, ok := out.Monitors[m.Monitor]; ok {
			mon.HasReading = true
			out.Monitors[m.Monitor] = mon
		}
	}

	aggs, err := s.aggregates.List(ctx, aggregates.ListQuery{
		From:       from,
		To:         to,
		Timespan:   aggregates.Hourly,
		AllRegions: true,
		Descending: true,
	})
	if err != nil {
		return out, err
	}
	withData := make(map[string]bool)
	for _, a := range aggs {
		if withData[a.Region] {
			continue
		}
		withData[a.Region] = true
		out.Aggregates = append(out.Aggregates, a)
	}
	for i := range out.Regions {
		out.Regions[i].HasReading = withData[out.Regions[i].Name]
	}
	return out, nil
}
