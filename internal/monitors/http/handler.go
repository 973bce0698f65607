package monitorshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/monitors"
	"github.com/odyssey-erp/aqp/internal/platform/db"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
)

type monitorService interface {
	Create(ctx context.Context, in monitors.CreateInput) (monitors.Monitor, error)
	Get(ctx context.Context, name string) (monitors.Monitor, error)
	List(ctx context.Context, params monitors.ListParams) (monitors.ListResult, error)
}

// Handler exposes air monitor endpoints.
type Handler struct {
	logger  *slog.Logger
	service monitorService
}

// NewHandler constructs the monitor HTTP handler.
func NewHandler(logger *slog.Logger, service monitorService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers monitor routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{name}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := httpx.ParsePage(q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = "created_at"
	}
	res, err := h.service.List(r.Context(), monitors.ListParams{
		Region:    q.Get("monitor_region"),
		SortBy:    sortBy,
		SortOrder: q.Get("sort_order"),
		Page:      page,
	})
	if err != nil {
		h.respond(w, "list monitors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in monitors.CreateInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respond(w, "create monitor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respond(w, "get monitor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		httpx.ValidationProblem(w, verrs)
	case errors.Is(err, monitors.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, monitors.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, monitors.ErrRegionNotFound), errors.Is(err, db.ErrInvalidSort):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
