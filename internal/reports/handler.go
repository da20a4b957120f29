package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billfold/billfold/internal/platform/httpx"
)

// Handler manages report endpoints.
type Handler struct {
	service *Service
	errs    httpx.ErrorMapper
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		service: service,
		errs: httpx.ErrorMapper{
			Logger:     logger,
			Scope:      "reports handler",
			BadRequest: []error{ErrInvalidPeriod},
		},
	}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/revenue", h.revenue)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)

	// Default period: the current calendar year.
	now := time.Now()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	if t, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		from = t
	}
	if t, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		to = t
	}

	summary, err := h.service.RevenueSummary(r.Context(), userID, from, to)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
