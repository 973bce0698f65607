package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/aqp/internal/platform/gotenberg"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
	"github.com/odyssey-erp/aqp/internal/report"
	"github.com/odyssey-erp/aqp/internal/report/export"
	"github.com/odyssey-erp/aqp/internal/report/svg"
)

const requestTimeout = 10 * time.Second

// ReportService runs the report and manages view state.
type ReportService interface {
	Defaults(ctx context.Context) (report.Filters, error)
	Run(ctx context.Context, f report.Filters) (report.Filters, report.Result, error)
	CreateView(ctx context.Context, f report.Filters) (*report.ViewState, error)
	CheckRows(ctx context.Context, id string, rows []int) (*report.ViewState, error)
	View(ctx context.Context, id string) (*report.ViewState, error)
}

// PDFService renders a view to PDF bytes.
type PDFService interface {
	Render(ctx context.Context, v *report.ViewState) ([]byte, error)
}

// RunRecorder counts report executions.
type RunRecorder interface {
	ReportRun(treeType, periodRange string)
}

// CheckRequest replaces the checked rows of a view.
type CheckRequest struct {
	Rows []int `json:"rows" validate:"dive,gte=0"`
}

// Handler serves the air quality analytics report.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	latest   report.LatestReadingSource
	pdf      PDFService
	metrics  RunRecorder
	validate *validator.Validate
}

// NewHandler constructs the report HTTP handler. pdf and metrics may be nil.
func NewHandler(logger *slog.Logger, service ReportService, latest report.LatestReadingSource, pdf PDFService, metrics RunRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		latest:   latest,
		pdf:      pdf,
		metrics:  metrics,
		validate: validator.New(),
	}
}

func (h *Handler) filters(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"filters": report.Definitions()})
}

func (h *Handler) defaults(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Defaults(r.Context())
	if err != nil {
		h.respond(w, "report defaults", err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	f, result, err := h.service.Run(r.Context(), report.ParseFilters(r.URL.Query()))
	if err != nil {
		h.respond(w, "run report", err)
		return
	}
	h.recordRun(f)
	httpx.JSON(w, http.StatusOK, map[string]any{"filters": f, "result": result})
}

// createView runs the report and loads the latest reading timestamp
// concurrently, both under one request deadline.
func (h *Handler) createView(w http.ResponseWriter, r *http.Request) {
	f := report.ParseFilters(r.URL.Query())
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if err := httpx.DecodeJSON(w, r, &f); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		view   *report.ViewState
		latest *time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := h.service.CreateView(gctx, f)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if h.latest != nil {
		g.Go(func() error {
			dt, err := h.latest.LatestReadingDT(gctx)
			if err != nil {
				return fmt.Errorf("latest reading dt: %w", err)
			}
			latest = dt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.respond(w, "create report view", err)
		return
	}
	h.recordRun(view.Filters)
	httpx.JSON(w, http.StatusCreated, map[string]any{"view": view, "latest_reading_dt": latest})
}

func (h *Handler) checkRows(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.CheckRows(r.Context(), chi.URLParam(r, "id"), req.Rows)
	if err != nil {
		h.respond(w, "check report rows", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "load report view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) chartSVG(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "load report view", err)
		return
	}
	data := report.ChartData{Labels: view.ChartOptions.Labels()}
	if view.RawChartData != nil {
		data = *view.RawChartData
	}
	out, err := svg.Render(view.ChartOptions.Type, 0, view.ChartOptions.Height, data, svg.Opts{
		Title:     view.Filters.Title(),
		Colors:    view.ChartOptions.Colors,
		Precision: view.ChartOptions.Precision,
		ShowDots:  true,
	})
	if err != nil {
		h.respond(w, "render report chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(out))
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "load report view", err)
		return
	}
	buf := &bytes.Buffer{}
	if err := export.WriteCSV(buf, view); err != nil {
		h.respond(w, "export report csv", err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", "air-quality-analytics.csv")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "load report view", err)
		return
	}
	buf := &bytes.Buffer{}
	if err := export.WriteXLSX(buf, view); err != nil {
		h.respond(w, "export report xlsx", err)
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "air-quality-analytics.xlsx")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.RespondError(w, fmt.Errorf("%w: pdf export not configured", httpx.ErrUnavailable))
		return
	}
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "load report view", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	pdf, err := h.pdf.Render(ctx, view)
	if err != nil {
		h.respond(w, "export report pdf", err)
		return
	}
	attachment(w, "application/pdf", "air-quality-analytics.pdf")
	_, _ = w.Write(pdf)
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (h *Handler) recordRun(f report.Filters) {
	if h.metrics != nil {
		h.metrics.ReportRun(f.TreeType, f.Range)
	}
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidRange), errors.Is(err, report.ErrRegionNotFound), errors.Is(err, svg.ErrSeriesLength):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, report.ErrViewNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, export.ErrNoRenderer), errors.Is(err, gotenberg.ErrNotConfigured):
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", err.Error())
	default:
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
