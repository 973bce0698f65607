package aggregates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/aqp/internal/aqi"
	"github.com/odyssey-erp/aqp/internal/regions"
)

// Store is the persistence contract used by the service.
type Store interface {
	Find(ctx context.Context, region string, ts Timespan, dt time.Time) (*Aggregate, error)
	Insert(ctx context.Context, a Aggregate) (Aggregate, error)
	Update(ctx context.Context, a Aggregate) error
	List(ctx context.Context, q ListQuery) ([]Aggregate, error)
	InTx(ctx context.Context, fn func(Store) error) error
}

// ReadingSource returns raw PM2.5 values of monitors inside a closed interval.
type ReadingSource interface {
	PM25Between(ctx context.Context, from, to time.Time, monitors []string) ([]float64, error)
}

// MonitorSource resolves the monitors attached directly to a region.
type MonitorSource interface {
	DirectMonitors(ctx context.Context, region string) ([]string, error)
}

// TreeSource loads the region hierarchy.
type TreeSource interface {
	Tree(ctx context.Context) (*regions.Tree, error)
}

// Service computes hourly and daily reading aggregates over the region tree.
type Service struct {
	store    Store
	readings ReadingSource
	monitors MonitorSource
	tree     TreeSource
	logger   *slog.Logger
}

// NewService wires the aggregation service.
func NewService(store Store, readings ReadingSource, monitors MonitorSource, tree TreeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, readings: readings, monitors: monitors, tree: tree, logger: logger}
}

// HourlyData accumulates the raw readings of the region's own monitors and the
// hourly aggregates already computed for its children.
func (s *Service) HourlyData(ctx context.Context, store Store, tree *regions.Tree, region string, dt time.Time) (aqi.Accumulator, error) {
	var acc aqi.Accumulator
	from, to, err := TimeRange(dt, Hourly)
	if err != nil {
		return acc, err
	}

	direct, err := s.monitors.DirectMonitors(ctx, region)
	if err != nil {
		return acc, fmt.Errorf("aggregates: monitors of %s: %w", region, err)
	}
	if len(direct) > 0 {
		values, err := s.readings.PM25Between(ctx, from, to, direct)
		if err != nil {
			return acc, fmt.Errorf("aggregates: readings of %s: %w", region, err)
		}
		for _, v := range values {
			acc.AddReading(v)
		}
	}

	children := tree.Children(region)
	if len(children) == 0 {
		return acc, nil
	}
	hour, _ := Truncate(dt, Hourly)
	childAggs, err := store.List(ctx, ListQuery{From: hour, To: hour, Timespan: Hourly, Regions: children})
	if err != nil {
		return acc, err
	}
	for _, a := range childAggs {
		acc.AddAccumulated(a.PM25, a.Accumulator)
	}
	return acc, nil
}

// DailyData accumulates the region's hourly aggregates within the day of dt.
func (s *Service) DailyData(ctx context.Context, store Store, region string, dt time.Time) (aqi.Accumulator, error) {
	var acc aqi.Accumulator
	from, to, err := TimeRange(dt, Daily)
	if err != nil {
		return acc, err
	}
	hourly, err := store.List(ctx, ListQuery{From: from, To: to, Timespan: Hourly, Regions: []string{region}})
	if err != nil {
		return acc, err
	}
	for _, a := range hourly {
		acc.AddAccumulated(a.PM25, a.Accumulator)
	}
	return acc, nil
}

// AggregateForRegions computes the bucket at dt for every region, deepest
// regions first, inside one transaction. Missing aggregates are created only
// when there is data; existing ones are recomputed when updateExisting is set.
func (s *Service) AggregateForRegions(ctx context.Context, dt time.Time, ts Timespan, updateExisting bool) (Result, error) {
	var result Result
	bucket, err := Truncate(dt, ts)
	if err != nil {
		return result, err
	}
	tree, err := s.tree.Tree(ctx)
	if err != nil {
		return result, fmt.Errorf("aggregates: load region tree: %w", err)
	}

	err = s.store.InTx(ctx, func(store Store) error {
		result = Result{}
		for _, region := range tree.BottomUp() {
			written, err := s.aggregateRegion(ctx, store, tree, region, bucket, ts, updateExisting)
			if err != nil {
				return err
			}
			result.add(written)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *Service) aggregateRegion(ctx context.Context, store Store, tree *regions.Tree, region string, dt time.Time, ts Timespan, updateExisting bool) (Result, error) {
	existing, err := store.Find(ctx, region, ts, dt)
	if err != nil {
		return Result{}, err
	}
	if existing != nil && !updateExisting {
		return Result{}, nil
	}

	var acc aqi.Accumulator
	if ts == Hourly {
		acc, err = s.HourlyData(ctx, store, tree, region, dt)
	} else {
		acc, err = s.DailyData(ctx, store, region, dt)
	}
	if err != nil {
		return Result{}, err
	}

	if existing != nil {
		existing.apply(acc)
		if err := store.Update(ctx, *existing); err != nil {
			return Result{}, err
		}
		return Result{Updated: 1}, nil
	}
	if !acc.HasData() {
		return Result{}, nil
	}
	a := Aggregate{Region: region, Timespan: ts, ReadingDT: dt}
	a.apply(acc)
	if _, err := store.Insert(ctx, a); err != nil {
		return Result{}, err
	}
	return Result{Created: 1}, nil
}

// AggregateForRange runs AggregateForRegions for every bucket between from and
// to and reports progress after each one.
func (s *Service) AggregateForRange(ctx context.Context, from, to time.Time, ts Timespan, opts RangeOptions) (Result, error) {
	var total Result
	if from.IsZero() || to.IsZero() {
		return total, ErrInvalidRange
	}
	dts, err := DateTimesForRange(from, to, ts)
	if err != nil {
		return total, err
	}

	for i, dt := range dts {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		written, err := s.AggregateForRegions(ctx, dt, ts, opts.UpdateExisting)
		if err != nil {
			return total, fmt.Errorf("aggregates: %s at %s: %w", ts, dt.Format(time.DateTime), err)
		}
		total.add(written)

		if opts.Progress == nil {
			continue
		}
		p := Progress{Progress: i + 1, Total: len(dts), Timespan: ts}
		p.Message = fmt.Sprintf("Processing %s Region aggregation for timestamp %s (%d/%d)",
			ts, dt.Format(time.DateTime), p.Progress, p.Total)
		if p.Finished() {
			p.Message = "Finished: " + p.Message
		}
		if err := opts.Progress(ctx, p); err != nil {
			s.logger.Warn("publish aggregation progress", slog.Any("error", err), slog.Int("progress", p.Progress))
		}
	}
	return total, nil
}

// DailyRegionAggregates returns the daily aggregates of region keyed by date.
// An empty region selects the tree root.
func (s *Service) DailyRegionAggregates(ctx context.Context, from, to time.Time, region string) (map[string]Aggregate, error) {
	if region == "" {
		tree, err := s.tree.Tree(ctx)
		switch {
		case err == nil:
			region = tree.Root.Name
		case errors.Is(err, regions.ErrRootNotFound):
			region = regions.RootName
		default:
			return nil, err
		}
	}
	start, end := DayBounds(from, to)
	list, err := s.store.List(ctx, ListQuery{From: start, To: end, Timespan: Daily, Regions: []string{region}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]Aggregate, len(list))
	for _, a := range list {
		out[a.ReadingDT.Format(time.DateOnly)] = a
	}
	return out, nil
}

// List returns aggregates matching q.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Aggregate, error) {
	if err := q.Timespan.Validate(); err != nil {
		return nil, err
	}
	if q.From.IsZero() || q.To.IsZero() {
		return nil, ErrInvalidRange
	}
	return s.store.List(ctx, q)
}
