package aggregateshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
)

type aggregateService interface {
	List(ctx context.Context, q aggregates.ListQuery) ([]aggregates.Aggregate, error)
	DailyRegionAggregates(ctx context.Context, from, to time.Time, region string) (map[string]aggregates.Aggregate, error)
}

// Enqueuer schedules a background range aggregation and returns the task id.
type Enqueuer interface {
	EnqueueAggregateRange(ctx context.Context, from, to time.Time, dailyOnly bool) (string, error)
}

// UpdateToolRequest is the payload of the reading update tool.
type UpdateToolRequest struct {
	FromDT    string `json:"from_dt" validate:"required"`
	ToDT      string `json:"to_dt" validate:"required"`
	DailyOnly bool   `json:"daily_only"`
}

// Handler exposes reading aggregate endpoints and the reading update tool.
type Handler struct {
	logger   *slog.Logger
	service  aggregateService
	enqueuer Enqueuer
	validate *validator.Validate
}

// NewHandler constructs the aggregate HTTP handler. enqueuer may be nil when
// the tool is not mounted.
func NewHandler(logger *slog.Logger, service aggregateService, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, validate: validator.New()}
}

// MountRoutes registers aggregate routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/daily", h.daily)
}

// MountTools registers the reading update tool on r.
func (h *Handler) MountTools(r chi.Router) {
	r.Post("/reading-update", h.enqueueUpdate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := httpx.ParseTime("from_dt", q.Get("from_dt"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.ParseTime("to_dt", q.Get("to_dt"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	query := aggregates.ListQuery{
		From:       from,
		To:         to,
		Timespan:   aggregates.Timespan(q.Get("timespan")),
		Regions:    q["monitor_region"],
		AllRegions: len(q["monitor_region"]) == 0,
		Descending: strings.EqualFold(q.Get("sort_order"), "desc"),
	}
	if query.Timespan == "" {
		query.Timespan = aggregates.Hourly
	}
	list, err := h.service.List(r.Context(), query)
	if err != nil {
		h.respond(w, "list aggregates", err)
		return
	}
	if list == nil {
		list = []aggregates.Aggregate{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := httpx.ParseTime("from_date", q.Get("from_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.ParseTime("to_date", q.Get("to_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	daily, err := h.service.DailyRegionAggregates(r.Context(), from, to, q.Get("monitor_region"))
	if err != nil {
		h.respond(w, "daily region aggregates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, daily)
}

func (h *Handler) enqueueUpdate(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.RespondError(w, fmt.Errorf("%w: job queue not configured", httpx.ErrUnavailable))
		return
	}
	var req UpdateToolRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.ParseTime("from_dt", req.FromDT)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.ParseTime("to_dt", req.ToDT)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if to.Before(from) {
		httpx.RespondError(w, fmt.Errorf("%w: to_dt must not be before from_dt", httpx.ErrValidation))
		return
	}

	taskID, err := h.enqueuer.EnqueueAggregateRange(r.Context(), from, to, req.DailyOnly)
	if err != nil {
		h.respond(w, "enqueue reading update", err)
		return
	}
	h.logger.Info("reading update queued",
		slog.String("task_id", taskID),
		slog.Time("from", from),
		slog.Time("to", to),
		slog.Bool("daily_only", req.DailyOnly))
	httpx.JSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"message": "Reading update queued",
	})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, aggregates.ErrInvalidTimespan), errors.Is(err, aggregates.ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, httpx.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Already Queued", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
