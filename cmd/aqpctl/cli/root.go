// Package cli implements the aqpctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/aqp/internal/report"
)

// Enqueuer submits the range aggregation task.
type Enqueuer interface {
	EnqueueAggregateRange(ctx context.Context, from, to time.Time, dailyOnly bool) (string, error)
}

// QueueReader inspects the job queue.
type QueueReader interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// TaskRunner executes a range aggregation task in process.
type TaskRunner interface {
	HandleRange(ctx context.Context, t *asynq.Task) error
}

// DefaultsSource resolves the report filter defaults.
type DefaultsSource interface {
	Defaults(ctx context.Context) (report.Filters, error)
}

// Backends are the connections a command may use. Fields may be nil when the
// command does not need them.
type Backends struct {
	Enqueuer Enqueuer
	Queue    QueueReader
	Runner   TaskRunner
	Defaults DefaultsSource
	Close    func() error
}

// Connector builds backends on demand.
type Connector func(ctx context.Context) (*Backends, error)

var errBackendMissing = errors.New("aqpctl: backend not configured")

type env struct {
	connect Connector
	output  string
}

func (e *env) backends(ctx context.Context) (*Backends, func(), error) {
	if e.connect == nil {
		return nil, nil, errBackendMissing
	}
	b, err := e.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if b.Close != nil {
			_ = b.Close()
		}
	}
	return b, release, nil
}

func (e *env) print(w io.Writer, v any) error {
	switch e.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("aqpctl: unsupported output %q (yaml|json)", e.output)
	}
}

// NewRootCommand assembles the aqpctl command tree.
func NewRootCommand(connect Connector) *cobra.Command {
	e := &env{connect: connect}
	root := &cobra.Command{
		Use:   "aqpctl",
		Short: "Operate the air quality platform",
		Long: `aqpctl manages reading aggregation and inspects the job queue.

Examples:
  aqpctl aggregate --from 2024-01-01 --to 2024-01-31
  aqpctl aggregate --from "2024-03-01 00:00" --to "2024-03-01 23:00" --now
  aqpctl queue --scheduled 20
  aqpctl defaults --output json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&e.output, "output", "o", "yaml", "Output format: yaml | json")

	root.AddCommand(newAggregateCommand(e))
	root.AddCommand(newQueueCommand(e))
	root.AddCommand(newDefaultsCommand(e))
	return root
}
