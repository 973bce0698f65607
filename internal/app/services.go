package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/events"
	"github.com/odyssey-erp/aqp/internal/monitors"
	"github.com/odyssey-erp/aqp/internal/readings"
	"github.com/odyssey-erp/aqp/internal/regions"
	"github.com/odyssey-erp/aqp/internal/report"
)

// Services holds the domain services shared by the server, the worker and aqpctl.
type Services struct {
	Bus        *events.Bus
	Regions    *regions.Service
	Monitors   *monitors.Service
	Readings   *readings.Service
	Aggregates *aggregates.Service
	Report     *report.Service
	Dates      *report.Initializer
}

// NewServices wires repositories and services over pool and redisClient.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) *Services {
	bus := events.NewBus()

	regionService := regions.NewService(regions.NewRepository(pool))
	monitorService := monitors.NewService(monitors.NewRepository(pool), regionService)

	readingRepo := readings.NewRepository(pool)
	aggregateService := aggregates.NewService(
		aggregates.NewRepository(pool),
		readingRepo,
		monitorService,
		regionService,
		logger.With(slog.String("component", "aggregates")),
	)

	latest := readings.NewLatestCache(redisClient, cfg.LatestReadingCacheTTL)
	readingService := readings.NewService(readingRepo, monitorService, regionService, aggregateService, readings.Options{
		Cache:     latest,
		Bus:       bus,
		WindowMax: cfg.ReadingsWindowMax,
		Logger:    logger.With(slog.String("component", "readings")),
	})

	dates := report.NewInitializer(readingService)
	executor := report.NewExecutor(readingService, aggregateService, regionService, monitorService)
	views := report.NewViewStore(redisClient, cfg.ReportViewTTL)
	reportService := report.NewService(executor, dates, views, bus, logger.With(slog.String("component", "report")))

	return &Services{
		Bus:        bus,
		Regions:    regionService,
		Monitors:   monitorService,
		Readings:   readingService,
		Aggregates: aggregateService,
		Report:     reportService,
		Dates:      dates,
	}
}
