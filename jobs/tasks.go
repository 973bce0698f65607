package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/aqp/internal/platform/httpx"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAggregateRange recomputes hourly and daily aggregates over a time range.
	TaskAggregateRange = "aggregates:range"
	// TaskAggregateHourly aggregates the hour that just ended.
	TaskAggregateHourly = "aggregates:hourly"

	// AggregateRangeTaskID is fixed so only one range aggregation can wait in the queue.
	AggregateRangeTaskID = "aggregate-for-regions-timerange"

	rangeTimeout = 6 * time.Hour
)

// ErrAlreadyQueued is returned when a range aggregation is already pending or running.
var ErrAlreadyQueued = fmt.Errorf("%w: aggregation process is already in queue", httpx.ErrConflict)

// AggregateRangePayload describes a range aggregation request.
type AggregateRangePayload struct {
	From      time.Time `json:"from_dt"`
	To        time.Time `json:"to_dt"`
	DailyOnly bool      `json:"daily_only"`
}

// NewAggregateRangeTask builds the range aggregation task with its fixed id.
func NewAggregateRangeTask(payload AggregateRangePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAggregateRange, data,
		asynq.TaskID(AggregateRangeTaskID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(rangeTimeout),
	), nil
}

// NewAggregateHourlyTask builds the cron task for the previous hour.
func NewAggregateHourlyTask() *asynq.Task {
	return asynq.NewTask(TaskAggregateHourly, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// enqueueError maps asynq id conflicts onto ErrAlreadyQueued.
func enqueueError(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrAlreadyQueued
	}
	return err
}
