package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	aggregateshttp "github.com/odyssey-erp/aqp/internal/aggregates/http"
	monitorshttp "github.com/odyssey-erp/aqp/internal/monitors/http"
	"github.com/odyssey-erp/aqp/internal/observability"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
	readingshttp "github.com/odyssey-erp/aqp/internal/readings/http"
	"github.com/odyssey-erp/aqp/internal/realtime"
	regionshttp "github.com/odyssey-erp/aqp/internal/regions/http"
	reporthttp "github.com/odyssey-erp/aqp/internal/report/http"
	"github.com/odyssey-erp/aqp/jobs"
)

// ReportPath is the mount point of the analytics report.
const ReportPath = "/reports/air-quality-analytics"

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	RegionsHandler    *regionshttp.Handler
	MonitorsHandler   *monitorshttp.Handler
	ReadingsHandler   *readingshttp.Handler
	AggregatesHandler *aggregateshttp.Handler
	ReportHandler     *reporthttp.Handler
	JobHandler        *jobs.Handler
	RealtimeHandler   *realtime.Handler

	// Checks are consulted by /readyz, keyed by dependency name.
	Checks map[string]Pinger
}

// NewRouter constructs the chi.Router with AQP defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !params.Config.IsProduction() && !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Checks))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// The websocket must stay outside the timeout and compression group.
	if params.RealtimeHandler != nil {
		r.Method(http.MethodGet, "/realtime", params.RealtimeHandler)
	}

	r.Group(func(r chi.Router) {
		for _, mw := range apiMiddlewares(params.Config) {
			r.Use(mw)
		}

		r.Route("/api", func(r chi.Router) {
			if params.RegionsHandler != nil {
				r.Route("/regions", params.RegionsHandler.MountRoutes)
			}
			if params.MonitorsHandler != nil {
				r.Route("/monitors", params.MonitorsHandler.MountRoutes)
			}
			if params.ReadingsHandler != nil {
				r.Route("/readings", params.ReadingsHandler.MountRoutes)
			}
			if params.AggregatesHandler != nil {
				r.Route("/aggregates", params.AggregatesHandler.MountRoutes)
				r.Route("/tools", params.AggregatesHandler.MountTools)
			}
		})

		if params.ReportHandler != nil {
			r.Route(ReportPath, params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readiness(checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		report := readinessReport{Status: "ok", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				report.Status = "degraded"
				report.Checks[name] = err.Error()
				continue
			}
			report.Checks[name] = "ok"
		}
		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, report)
	}
}
