package readingshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/aqp/internal/aqi"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
	"github.com/odyssey-erp/aqp/internal/readings"
)

type readingService interface {
	Create(ctx context.Context, in readings.CreateInput) (readings.Reading, error)
	Get(ctx context.Context, id int64) (readings.Reading, error)
	Delete(ctx context.Context, id int64) error
	LatestReadingDT(ctx context.Context) (*time.Time, error)
	LatestReadings(ctx context.Context, forDT time.Time, window int) (readings.Latest, error)
	MonitorReadings(ctx context.Context, q readings.Query) ([]readings.Reading, error)
	DailyAverages(ctx context.Context, fromDate, toDate time.Time, monitor string) (map[string]aqi.Daily, error)
}

// Handler exposes monitor reading endpoints.
type Handler struct {
	logger  *slog.Logger
	service readingService
}

// NewHandler constructs the reading HTTP handler.
func NewHandler(logger *slog.Logger, service readingService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reading routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/latest", h.latest)
	r.Get("/latest-dt", h.latestDT)
	r.Get("/daily", h.daily)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := httpx.OptionalTime(q, "from_dt")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.OptionalTime(q, "to_dt")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.MonitorReadings(r.Context(), readings.Query{
		From:       from,
		To:         to,
		Monitors:   q["air_monitor"],
		AnyMonitor: len(q["air_monitor"]) == 0,
		Descending: strings.EqualFold(q.Get("sort_order"), "desc"),
	})
	if err != nil {
		h.respond(w, "list readings", err)
		return
	}
	if list == nil {
		list = []readings.Reading{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in readings.CreateInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respond(w, "create reading", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	forDT, err := httpx.OptionalTime(q, "for_datetime")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	window := 0
	if raw := strings.TrimSpace(q.Get("window_minutes")); raw != "" {
		if window, err = strconv.Atoi(raw); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: window_minutes must be an integer", httpx.ErrValidation))
			return
		}
		if window <= 0 {
			h.respond(w, "latest readings", readings.ErrInvalidWindow)
			return
		}
	}
	latest, err := h.service.LatestReadings(r.Context(), forDT, window)
	if err != nil {
		h.respond(w, "latest readings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, latest)
}

func (h *Handler) latestDT(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.LatestReadingDT(r.Context())
	if err != nil {
		h.respond(w, "latest reading dt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]*time.Time{"latest_reading_dt": latest})
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := httpx.OptionalTime(q, "from_date")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.OptionalTime(q, "to_date")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	daily, err := h.service.DailyAverages(r.Context(), from, to, q.Get("air_monitor"))
	if err != nil {
		h.respond(w, "daily averages", err)
		return
	}
	httpx.JSON(w, http.StatusOK, daily)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid reading id", httpx.ErrValidation)
	}
	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	reading, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respond(w, "get reading", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reading)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respond(w, "delete reading", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, readings.ErrNotFound), errors.Is(err, readings.ErrMonitorNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, readings.ErrDuplicateReading):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, readings.ErrInvalidWindow), errors.Is(err, readings.ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
