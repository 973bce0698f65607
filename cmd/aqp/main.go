package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	aggregateshttp "github.com/odyssey-erp/aqp/internal/aggregates/http"
	"github.com/odyssey-erp/aqp/internal/app"
	monitorshttp "github.com/odyssey-erp/aqp/internal/monitors/http"
	"github.com/odyssey-erp/aqp/internal/observability"
	"github.com/odyssey-erp/aqp/internal/platform/cache"
	"github.com/odyssey-erp/aqp/internal/platform/db"
	"github.com/odyssey-erp/aqp/internal/platform/gotenberg"
	readingshttp "github.com/odyssey-erp/aqp/internal/readings/http"
	"github.com/odyssey-erp/aqp/internal/realtime"
	regionshttp "github.com/odyssey-erp/aqp/internal/regions/http"
	"github.com/odyssey-erp/aqp/internal/report/export"
	reporthttp "github.com/odyssey-erp/aqp/internal/report/http"
	"github.com/odyssey-erp/aqp/jobs"
)

func main() {
	if app.SkipRuntime("http server") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services := app.NewServices(cfg, dbpool, redisClient, logger)

	root, created, err := services.Regions.EnsureRoot(ctx)
	if err != nil {
		logger.Error("ensure root region", slog.Any("error", err))
		os.Exit(1)
	}
	if created {
		logger.Info("created root region", slog.String("region", root))
	}

	metrics := observability.NewMetrics()

	hub := realtime.NewHub(logger.With(slog.String("component", "realtime")), metrics)
	go hub.Run(ctx)
	publisher := realtime.NewPublisher(redisClient, cfg.RealtimeChannel)
	realtime.BridgeReadings(services.Bus, publisher)
	relay := realtime.NewRelay(redisClient, cfg.RealtimeChannel, hub, services.Bus, logger)
	go func() {
		if err := relay.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime relay", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	var pdf reporthttp.PDFService
	var pdfClient *gotenberg.Client
	if cfg.GotenbergURL != "" {
		pdfClient = gotenberg.NewClient(cfg.GotenbergURL, cfg.AppWriteTimeout)
		pdf = &export.PDFExporter{Renderer: pdfClient}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		RegionsHandler:    regionshttp.NewHandler(logger, services.Regions),
		MonitorsHandler:   monitorshttp.NewHandler(logger, services.Monitors),
		ReadingsHandler:   readingshttp.NewHandler(logger, services.Readings),
		AggregatesHandler: aggregateshttp.NewHandler(logger, services.Aggregates, jobClient),
		ReportHandler:     reporthttp.NewHandler(logger, services.Report, services.Readings, pdf, metrics),
		JobHandler:        jobs.NewHandler(inspector, logger),
		RealtimeHandler:   realtime.NewHandler(hub, logger, nil),
		Checks:            readinessChecks(dbpool, redisClient, pdfClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
	}
}

func readinessChecks(pool app.Pinger, redisClient *redis.Client, pdf *gotenberg.Client) map[string]app.Pinger {
	checks := map[string]app.Pinger{
		"postgres": pool,
		"redis": app.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}
	if pdf != nil {
		checks["gotenberg"] = pdf
	}
	return checks
}
