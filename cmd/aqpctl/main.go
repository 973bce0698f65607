package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/aqp/cmd/aqpctl/cli"
	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/app"
	"github.com/odyssey-erp/aqp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(connect)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// connect builds lazy clients. Nothing dials until a command uses it.
func connect(ctx context.Context) (*cli.Backends, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("aqpctl: postgres: %w", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)

	services := app.NewServices(cfg, pool, redisClient, logger)
	job := jobs.NewAggregateJob(services.Aggregates, printProgress, logger, nil)

	return &cli.Backends{
		Enqueuer: client,
		Queue:    inspector,
		Runner:   job,
		Defaults: services.Report,
		Close: func() error {
			pool.Close()
			return errors.Join(client.Close(), inspector.Close(), redisClient.Close())
		},
	}, nil
}

func printProgress(_ context.Context, p aggregates.Progress) error {
	_, err := fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", p.Progress, p.Total, p.Message)
	return err
}
