package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/aqp/internal/platform/httpx"
	"github.com/odyssey-erp/aqp/internal/report"
	"github.com/odyssey-erp/aqp/jobs"
)

type recordingEnqueuer struct {
	from, to  time.Time
	dailyOnly bool
	err       error
}

func (r *recordingEnqueuer) EnqueueAggregateRange(ctx context.Context, from, to time.Time, dailyOnly bool) (string, error) {
	r.from, r.to, r.dailyOnly = from, to, dailyOnly
	if r.err != nil {
		return "", r.err
	}
	return jobs.AggregateRangeTaskID, nil
}

type recordingRunner struct {
	payload jobs.AggregateRangePayload
}

func (r *recordingRunner) HandleRange(ctx context.Context, t *asynq.Task) error {
	return json.Unmarshal(t.Payload(), &r.payload)
}

type stubQueue struct {
	info      *asynq.QueueInfo
	scheduled []*asynq.TaskInfo
}

func (s stubQueue) GetQueueInfo(queue string) (*asynq.QueueInfo, error) { return s.info, nil }

func (s stubQueue) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return s.scheduled, nil
}

type stubDefaults struct{}

func (stubDefaults) Defaults(ctx context.Context) (report.Filters, error) {
	f := report.DefaultFilters()
	f.FromDate, f.ToDate = "2023-03-31", "2024-03-31"
	return f, nil
}

func run(t *testing.T, b *Backends, args ...string) (string, error) {
	t.Helper()
	closed := false
	b.Close = func() error { closed = true; return nil }
	root := NewRootCommand(func(context.Context) (*Backends, error) { return b, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, closed, "backends must be released")
	}
	return out.String(), err
}

func TestAggregateQueuesTask(t *testing.T) {
	enq := &recordingEnqueuer{}
	out, err := run(t, &Backends{Enqueuer: enq}, "aggregate", "--from", "2024-01-01", "--to", "2024-01-02 06:00", "--daily-only")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), enq.from)
	assert.Equal(t, time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC), enq.to)
	assert.True(t, enq.dailyOnly)

	var got aggregateOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "queued", got.Mode)
	assert.Equal(t, jobs.AggregateRangeTaskID, got.TaskID)
}

func TestAggregateRunsInProcess(t *testing.T) {
	runner := &recordingRunner{}
	out, err := run(t, &Backends{Runner: runner}, "aggregate", "--from", "2024-01-01", "--to", "2024-01-01 23:00", "--now", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), runner.payload.To)
	assert.False(t, runner.payload.DailyOnly)
	assert.Contains(t, out, `"mode": "ran"`)
}

func TestAggregateValidatesRange(t *testing.T) {
	_, err := run(t, &Backends{Enqueuer: &recordingEnqueuer{}}, "aggregate", "--from", "2024-02-01", "--to", "2024-01-01")
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = run(t, &Backends{Enqueuer: &recordingEnqueuer{}}, "aggregate", "--from", "yesterday", "--to", "2024-01-01")
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = run(t, &Backends{}, "aggregate", "--to", "2024-01-01")
	require.Error(t, err)
}

func TestAggregateSurfacesQueueConflict(t *testing.T) {
	enq := &recordingEnqueuer{err: jobs.ErrAlreadyQueued}
	_, err := run(t, &Backends{Enqueuer: enq}, "aggregate", "--from", "2024-01-01", "--to", "2024-01-02")
	require.ErrorIs(t, err, jobs.ErrAlreadyQueued)
}

func TestQueueListsScheduledTasks(t *testing.T) {
	next := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	q := stubQueue{
		info:      &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Scheduled: 1},
		scheduled: []*asynq.TaskInfo{{ID: "t-1", Type: jobs.TaskAggregateHourly, NextProcessAt: next}},
	}
	out, err := run(t, &Backends{Queue: q}, "queue", "-o", "json")
	require.NoError(t, err)

	var got QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, QueueStats{
		Queue:     jobs.QueueDefault,
		Pending:   2,
		Scheduled: 1,
		Upcoming:  []ScheduledTask{{ID: "t-1", Type: jobs.TaskAggregateHourly, NextRunAt: next}},
	}, got)
}

func TestDefaultsPrintsFilters(t *testing.T) {
	out, err := run(t, &Backends{Defaults: stubDefaults{}}, "defaults")
	require.NoError(t, err)

	var got defaultsOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, defaultsOutput{
		TreeType:   report.TreeMonitorRegion,
		ValueField: report.ValuePM25,
		FromDate:   "2023-03-31",
		ToDate:     "2024-03-31",
		Range:      report.RangeWeekly,
	}, got)
}

func TestUnsupportedOutputAndMissingBackend(t *testing.T) {
	_, err := run(t, &Backends{Defaults: stubDefaults{}}, "defaults", "-o", "xml")
	require.Error(t, err)

	_, err = run(t, &Backends{}, "queue")
	require.True(t, errors.Is(err, errBackendMissing))
}
