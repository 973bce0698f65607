package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	jobmetrics "github.com/odyssey-erp/aqp/internal/jobs"
)

// RangeAggregator runs aggregation passes.
type RangeAggregator interface {
	AggregateForRange(ctx context.Context, from, to time.Time, ts aggregates.Timespan, opts aggregates.RangeOptions) (aggregates.Result, error)
	AggregateForRegions(ctx context.Context, dt time.Time, ts aggregates.Timespan, updateExisting bool) (aggregates.Result, error)
}

// AggregateJob handles the aggregation tasks.
type AggregateJob struct {
	Service  RangeAggregator
	Progress aggregates.ProgressFunc
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewAggregateJob wires the aggregation handlers. progress may be nil.
func NewAggregateJob(service RangeAggregator, progress aggregates.ProgressFunc, logger *slog.Logger, metrics *jobmetrics.Metrics) *AggregateJob {
	return &AggregateJob{
		Service:  service,
		Progress: progress,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleRange recomputes hourly aggregates unless the payload asks for daily
// only, then daily aggregates, over the payload range.
func (j *AggregateJob) HandleRange(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("aggregate range: handler not configured")
	}
	var payload AggregateRangePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("aggregate range: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.From.IsZero() || payload.To.IsZero() || payload.To.Before(payload.From) {
		return fmt.Errorf("aggregate range: invalid range: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskAggregateRange)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.Time("from", payload.From),
		slog.Time("to", payload.To),
		slog.Bool("daily_only", payload.DailyOnly),
	)
	logger.Info("starting range aggregation")
	start := time.Now()

	spans := []aggregates.Timespan{aggregates.Hourly, aggregates.Daily}
	if payload.DailyOnly {
		spans = spans[1:]
	}
	opts := aggregates.RangeOptions{UpdateExisting: true, Progress: j.Progress}
	for _, ts := range spans {
		result, err := j.Service.AggregateForRange(ctx, payload.From, payload.To, ts, opts)
		j.Metrics.AddAggregates(string(ts), result.Written())
		if err != nil {
			logger.Error("range aggregation failed", slog.String("timespan", string(ts)), slog.Any("error", err))
			return err
		}
		logger.Info("range aggregation pass done",
			slog.String("timespan", string(ts)),
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated),
		)
	}
	logger.Info("completed range aggregation", slog.Duration("duration", time.Since(start)))
	return nil
}

// HandleHourly aggregates the bucket ending at the last full hour, which holds
// the previous hour of readings, then refreshes the daily aggregate of its day.
func (j *AggregateJob) HandleHourly(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("aggregate hourly: handler not configured")
	}
	tracker := j.Metrics.Track(TaskAggregateHourly)
	defer func() {
		err = tracker.End(err)
	}()

	hour := j.now().Truncate(time.Hour)
	hourly, err := j.Service.AggregateForRegions(ctx, hour, aggregates.Hourly, true)
	if err != nil {
		return fmt.Errorf("aggregate hourly %s: %w", hour.Format(time.DateTime), err)
	}
	daily, err := j.Service.AggregateForRegions(ctx, hour, aggregates.Daily, true)
	if err != nil {
		return fmt.Errorf("aggregate daily %s: %w", hour.Format(time.DateOnly), err)
	}
	j.Metrics.AddAggregates(string(aggregates.Hourly), hourly.Written())
	j.Metrics.AddAggregates(string(aggregates.Daily), daily.Written())
	j.logger().Info("hourly aggregation done",
		slog.Time("hour", hour),
		slog.Int("hourly", hourly.Written()),
		slog.Int("daily", daily.Written()),
	)
	return nil
}

func (j *AggregateJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *AggregateJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
