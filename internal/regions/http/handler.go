package regionshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/aqp/internal/platform/db"
	"github.com/odyssey-erp/aqp/internal/platform/httpx"
	"github.com/odyssey-erp/aqp/internal/regions"
)

type regionService interface {
	Create(ctx context.Context, in regions.CreateInput) (regions.Region, error)
	Get(ctx context.Context, name string) (regions.Region, error)
	List(ctx context.Context, params regions.ListParams) (regions.ListResult, error)
	Tree(ctx context.Context) (*regions.Tree, error)
}

// Handler exposes monitor region endpoints.
type Handler struct {
	logger  *slog.Logger
	service regionService
}

// NewHandler constructs the region HTTP handler.
func NewHandler(logger *slog.Logger, service regionService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers region routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/tree", h.tree)
	r.Get("/{name}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := httpx.ParsePage(q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.List(r.Context(), regions.ListParams{
		Parent:    q.Get("parent_monitor_region"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      page,
	})
	if err != nil {
		h.respond(w, "list regions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in regions.CreateInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respond(w, "create region", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	region, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respond(w, "get region", err)
		return
	}
	httpx.JSON(w, http.StatusOK, region)
}

type treeNode struct {
	Name     string     `json:"name"`
	Children []treeNode `json:"children,omitempty"`
}

func toTreeNode(n *regions.Node) treeNode {
	out := treeNode{Name: n.Name}
	for _, c := range n.Children {
		out.Children = append(out.Children, toTreeNode(c))
	}
	return out
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		h.respond(w, "load region tree", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"root":   toTreeNode(tree.Root),
		"levels": tree.LevelOrder(),
	})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		httpx.ValidationProblem(w, verrs)
	case errors.Is(err, regions.ErrNotFound), errors.Is(err, regions.ErrParentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, regions.ErrDuplicate), errors.Is(err, regions.ErrMultipleRoots):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, regions.ErrInvalidZone), errors.Is(err, db.ErrInvalidSort):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, regions.ErrRootNotFound):
		httpx.Problem(w, http.StatusConflict, "Region Tree Invalid", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
