package employees

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold/billfold/internal/platform/httpx"
)

// Handler manages staff register endpoints.
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
			Scope:      "employees handler",
			BadRequest: []error{ErrInvalidInput},
			NotFound:   []error{ErrNotFound},
		},
	}
}

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/deactivate", h.deactivate)
}

type employeeRequest struct {
	UserID        int64   `json:"user_id" validate:"required,gt=0"`
	Name          string  `json:"name" validate:"required"`
	Email         string  `json:"email" validate:"omitempty,email"`
	Designation   string  `json:"designation"`
	MonthlySalary float64 `json:"monthly_salary" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"omitempty,oneof=INR USD"`
	JoinedOn      string  `json:"joined_on"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.service.Create(r.Context(), employee); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employee)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	employee, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employee)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	employee, ok := h.decode(w, r)
	if !ok {
		return
	}
	employee.ID = id
	if err := h.service.Update(r.Context(), employee); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employee)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.errs.Respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Employee, bool) {
	var req employeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}

	employee := &Employee{
		UserID:        req.UserID,
		Name:          req.Name,
		Email:         req.Email,
		Designation:   req.Designation,
		MonthlySalary: req.MonthlySalary,
		Currency:      req.Currency,
	}
	if req.JoinedOn != "" {
		t, err := time.Parse("2006-01-02", req.JoinedOn)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "joined_on must be YYYY-MM-DD")
			return nil, false
		}
		employee.JoinedOn = &t
	}
	return employee, true
}

