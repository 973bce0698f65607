package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/aqp/internal/platform/httpx"
)

// ExportLimit caps export requests per client per minute.
const ExportLimit = 10

// MountRoutes registers the report endpoints onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(ExportLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)

	r.Get("/filters", h.filters)
	r.Get("/defaults", h.defaults)
	r.Get("/", h.run)
	r.Post("/views", h.createView)
	r.Route("/views/{id}", func(vr chi.Router) {
		vr.Get("/", h.view)
		vr.Post("/checked", h.checkRows)
		vr.Get("/chart.svg", h.chartSVG)
		vr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.exportCSV)
			gr.Get("/export.xlsx", h.exportXLSX)
			gr.Get("/export.pdf", h.exportPDF)
		})
	})
}
