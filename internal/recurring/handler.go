package recurring

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/platform/httpx"
)

// Handler manages recurring template endpoints.
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
			Scope:      "recurring handler",
			BadRequest: []error{ErrInvalidTemplate},
			NotFound:   []error{ErrNotFound},
		},
	}
}

// MountRoutes registers template routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createTemplate)
	r.Get("/", h.listTemplates)
	r.Get("/{id}", h.getTemplate)
	r.Post("/{id}/activate", h.setStatus(StatusActive))
	r.Post("/{id}/deactivate", h.setStatus(StatusInactive))
}

type createTemplateRequest struct {
	UserID        int64                  `json:"user_id" validate:"required,gt=0"`
	ClientID      int64                  `json:"client_id" validate:"required,gt=0"`
	Title         string                 `json:"title" validate:"required"`
	Frequency     Frequency              `json:"frequency" validate:"required,oneof=weekly monthly quarterly yearly"`
	StartDate     string                 `json:"start_date" validate:"required"`
	EndDate       string                 `json:"end_date"`
	AutoSend      bool                   `json:"auto_send"`
	Engagement    billing.EngagementType `json:"engagement_type" validate:"required,oneof=service project retainership milestone"`
	Currency      string                 `json:"currency" validate:"required,oneof=INR USD"`
	Items         []billing.LineItem     `json:"items"`
	Milestones    []billing.Milestone    `json:"milestones"`
	TaxName       string                 `json:"tax_name"`
	TaxPercentage float64                `json:"tax_percentage" validate:"gte=0"`
	GSTRegistered bool                   `json:"is_gst_registered"`
	GSTRate       float64                `json:"gst_rate" validate:"gte=0"`
	TDSApplicable *bool                  `json:"is_tds_applicable"`
	TDSRate       float64                `json:"tds_rate" validate:"gte=0"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
			return
		}
		endDate = &end
	}

	tpl := &Template{
		UserID:        req.UserID,
		ClientID:      req.ClientID,
		Title:         req.Title,
		Frequency:     req.Frequency,
		StartDate:     start,
		EndDate:       endDate,
		AutoSend:      req.AutoSend,
		Engagement:    req.Engagement,
		Currency:      req.Currency,
		Items:         req.Items,
		Milestones:    req.Milestones,
		TaxName:       req.TaxName,
		TaxPercentage: req.TaxPercentage,
		GSTRegistered: req.GSTRegistered,
		GSTRate:       req.GSTRate,
		TDSApplicable: req.TDSApplicable,
		TDSRate:       req.TDSRate,
	}
	if err := h.service.CreateTemplate(r.Context(), tpl); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tpl)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	templates, err := h.service.ListTemplates(r.Context(), userID)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid template id")
		return
	}
	tpl, err := h.service.GetTemplate(r.Context(), id)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *Handler) setStatus(status TemplateStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid template id")
			return
		}
		if status == StatusActive {
			err = h.service.Activate(r.Context(), id)
		} else {
			err = h.service.Deactivate(r.Context(), id)
		}
		if err != nil {
			h.errs.Respond(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": string(status)})
	}
}

