package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/clients"
	"github.com/billfold/billfold/internal/employees"
	"github.com/billfold/billfold/internal/expenses"
	"github.com/billfold/billfold/internal/observability"
	"github.com/billfold/billfold/internal/recurring"
	"github.com/billfold/billfold/internal/reminders"
	"github.com/billfold/billfold/internal/reports"
	"github.com/billfold/billfold/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	InvoiceHandler   *billing.Handler
	RecurringHandler *recurring.Handler
	ReminderHandler  *reminders.Handler
	ClientHandler    *clients.Handler
	EmployeeHandler  *employees.Handler
	ExpenseHandler   *expenses.Handler
	ReportHandler    *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Billfold defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", params.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		if params.InvoiceHandler != nil {
			api.Route("/invoices", params.InvoiceHandler.MountRoutes)
		}
		if params.RecurringHandler != nil {
			api.Route("/recurring-invoices", params.RecurringHandler.MountRoutes)
		}
		if params.ReminderHandler != nil {
			api.Route("/reminders", params.ReminderHandler.MountRoutes)
		}
		if params.ClientHandler != nil {
			api.Route("/clients", params.ClientHandler.MountRoutes)
		}
		if params.EmployeeHandler != nil {
			api.Route("/employees", params.EmployeeHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			api.Route("/expenses", params.ExpenseHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			api.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
