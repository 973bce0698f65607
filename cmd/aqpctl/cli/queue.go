package cli

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/aqp/jobs"
)

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string          `json:"queue" yaml:"queue"`
	Pending   int             `json:"pending" yaml:"pending"`
	Active    int             `json:"active" yaml:"active"`
	Scheduled int             `json:"scheduled" yaml:"scheduled"`
	Retry     int             `json:"retry" yaml:"retry"`
	Paused    bool            `json:"paused" yaml:"paused"`
	Upcoming  []ScheduledTask `json:"upcoming,omitempty" yaml:"upcoming,omitempty"`
}

// ScheduledTask is one task waiting for its process time.
type ScheduledTask struct {
	ID        string    `json:"id" yaml:"id"`
	Type      string    `json:"type" yaml:"type"`
	NextRunAt time.Time `json:"next_run_at" yaml:"next_run_at"`
}

func newQueueCommand(e *env) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show job queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, release, err := e.backends(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			if b.Queue == nil {
				return errBackendMissing
			}
			stats, err := inspectQueue(b.Queue, size)
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().IntVar(&size, "scheduled", 10, "Number of scheduled tasks to list (0 disables)")
	return cmd
}

func inspectQueue(q QueueReader, size int) (QueueStats, error) {
	info, err := q.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Paused = info.Paused
	}
	if size <= 0 {
		return stats, nil
	}
	tasks, err := q.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		return QueueStats{}, err
	}
	for _, t := range tasks {
		stats.Upcoming = append(stats.Upcoming, ScheduledTask{ID: t.ID, Type: t.Type, NextRunAt: t.NextProcessAt})
	}
	return stats, nil
}
