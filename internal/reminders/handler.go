package reminders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold/billfold/internal/platform/httpx"
)

// Handler manages reminder settings endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	errs     httpx.ErrorMapper
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		errs: httpx.ErrorMapper{
			Logger:     logger,
			Scope:      "reminders handler",
			BadRequest: []error{ErrInvalidSettings},
			NotFound:   []error{ErrNotFound},
		},
	}
}

// MountRoutes registers reminder settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings/{userID}", h.getSettings)
	r.Put("/settings/{userID}", h.saveSettings)
}

type settingsRequest struct {
	DaysBeforeDue []int  `json:"days_before_due" validate:"dive,gte=1,lte=90"`
	DaysAfterDue  []int  `json:"days_after_due" validate:"dive,gte=1,lte=90"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	Enabled       bool   `json:"enabled"`
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req settingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	settings := &Settings{
		UserID:        userID,
		DaysBeforeDue: req.DaysBeforeDue,
		DaysAfterDue:  req.DaysAfterDue,
		Subject:       req.Subject,
		Body:          req.Body,
		Enabled:       req.Enabled,
	}
	if err := h.service.SaveSettings(r.Context(), settings); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

