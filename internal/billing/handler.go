package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold/billfold/internal/platform/httpx"
)

// Handler manages invoice endpoints.
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
			Scope:      "billing handler",
			BadRequest: []error{ErrInvalidInput, ErrInvalidTransition},
			NotFound:   []error{ErrNotFound},
		},
	}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/totals", h.previewTotals)
	r.Post("/", h.createInvoice)
	r.Get("/", h.listInvoices)
	r.Get("/{id}", h.getInvoice)
	r.Put("/{id}", h.updateInvoice)
	r.Post("/{id}/send", h.sendInvoice)
	r.Post("/{id}/payments", h.recordPayment)
}

type lineItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount" validate:"gte=0"`
}

type milestoneRequest struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

type totalsRequest struct {
	Engagement    EngagementType     `json:"engagement_type" validate:"required,oneof=service project retainership milestone"`
	Currency      string             `json:"currency" validate:"required,oneof=INR USD"`
	Items         []lineItemRequest  `json:"items" validate:"dive"`
	Milestones    []milestoneRequest `json:"milestones" validate:"dive"`
	TaxName       string             `json:"tax_name"`
	TaxPercentage float64            `json:"tax_percentage" validate:"gte=0"`
	GSTRegistered bool               `json:"is_gst_registered"`
	GSTRate       float64            `json:"gst_rate" validate:"gte=0"`
	TDSApplicable *bool              `json:"is_tds_applicable"`
	TDSRate       float64            `json:"tds_rate" validate:"gte=0"`
}

type createInvoiceRequest struct {
	totalsRequest
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	ClientID  int64  `json:"client_id" validate:"required,gt=0"`
	Number    string `json:"invoice_number"`
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"payment_method"`
	PaidAt string  `json:"payment_date"`
}

// previewTotals recomputes totals for an in-progress draft. The form
// layer calls it synchronously after every relevant field edit.
func (h *Handler) previewTotals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	totals, err := h.service.resolve(req.toInput())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := req.toInput()
	input.UserID = req.UserID
	input.ClientID = req.ClientID
	input.Number = req.Number
	var err error
	if input.IssueDate, err = parseDate(req.IssueDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
		return
	}
	if input.DueDate, err = parseDate(req.DueDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
		return
	}

	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	invoices, err := h.service.ListInvoices(r.Context(), ListInvoicesRequest{
		UserID:   userID,
		ClientID: clientID,
		Status:   InvoiceStatus(r.URL.Query().Get("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}

	input := req.toInput()
	inv.Engagement = input.Engagement
	inv.Currency = input.Currency
	inv.Items = input.Items
	inv.Milestones = input.Milestones
	inv.TaxName = input.TaxName
	inv.TaxPercentage = input.TaxPercentage
	inv.GSTRegistered = input.GSTRegistered
	inv.GSTRate = input.GSTRate
	inv.TDSApplicable = input.TDSApplicable
	inv.TDSRate = input.TDSRate
	if req.Number != "" {
		inv.Number = req.Number
	}
	if req.IssueDate != "" {
		if inv.IssueDate, err = parseDate(req.IssueDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
			return
		}
	}
	if req.DueDate != "" {
		if inv.DueDate, err = parseDate(req.DueDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
			return
		}
	}

	if err := h.service.UpdateInvoice(r.Context(), inv); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	if err := h.service.MarkSent(r.Context(), id); err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusSent)})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paidAt, err := parseDate(req.PaidAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
		return
	}

	inv, err := h.service.RecordPayment(r.Context(), id, PaymentInput{
		Amount: req.Amount,
		Method: req.Method,
		PaidAt: paidAt,
	})
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (req totalsRequest) toInput() CreateInvoiceInput {
	items := make([]LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = LineItem{Description: it.Description, Quantity: it.Quantity, Rate: it.Rate, Amount: it.Amount}
	}
	milestones := make([]Milestone, len(req.Milestones))
	for i, m := range req.Milestones {
		milestones[i] = Milestone{Name: m.Name, Amount: m.Amount}
	}
	return CreateInvoiceInput{
		Engagement:    req.Engagement,
		Currency:      req.Currency,
		Items:         items,
		Milestones:    milestones,
		TaxName:       req.TaxName,
		TaxPercentage: req.TaxPercentage,
		GSTRegistered: req.GSTRegistered,
		GSTRate:       req.GSTRate,
		TDSApplicable: req.TDSApplicable,
		TDSRate:       req.TDSRate,
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
