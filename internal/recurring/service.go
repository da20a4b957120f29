package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/billfold/billfold/internal/billing"
)

// ErrNotFound indicates the template does not exist.
var ErrNotFound = errors.New("recurring: template not found")

// ErrMissingClient indicates the template references a client that no
// longer exists. Treated as a skip, not a failure.
var ErrMissingClient = errors.New("recurring: client not found")

// RepositoryPort defines data access methods for templates.
type RepositoryPort interface {
	CreateTemplate(ctx context.Context, tpl *Template) error
	GetTemplate(ctx context.Context, id int64) (*Template, error)
	ListTemplates(ctx context.Context, userID int64) ([]Template, error)
	ListDue(ctx context.Context, asOf time.Time) ([]Template, error)
	SetStatus(ctx context.Context, id int64, status TemplateStatus, reason string) error
	// Advance moves next_issue_date one step, guarded by the previous
	// value. A false return means another run already claimed it.
	Advance(ctx context.Context, id int64, prevNext, newNext, generatedOn time.Time) (bool, error)
}

// InvoicePort creates concrete invoices from template snapshots.
type InvoicePort interface {
	CreateInvoice(ctx context.Context, input billing.CreateInvoiceInput) (*billing.Invoice, error)
}

// ClientTermsPort resolves a client's payment term in days. Zero means
// the client has no specific term configured.
type ClientTermsPort interface {
	PaymentTermDays(ctx context.Context, clientID int64) (int, error)
}

// Scheduler materializes due templates into invoices once per cycle.
type Scheduler struct {
	repo     RepositoryPort
	invoices InvoicePort
	clients  ClientTermsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler builds a Scheduler instance.
func NewScheduler(repo RepositoryPort, invoices InvoicePort, clients ClientTermsPort, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		repo:     repo,
		invoices: invoices,
		clients:  clients,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the scheduler clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run processes every active template whose next issue date has
// arrived. Templates are independent: one failure is recorded in the
// summary and the batch continues. Run only returns an error when the
// due list itself cannot be loaded.
func (s *Scheduler) Run(ctx context.Context) (RunSummary, error) {
	today := dateOnly(s.now())
	summary := RunSummary{RunID: uuid.NewString(), AsOf: today}

	due, err := s.repo.ListDue(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("recurring: list due templates: %w", err)
	}

	for _, tpl := range due {
		result := s.process(ctx, tpl, today)
		summary.Processed++
		summary.Details = append(summary.Details, result)
		switch result.Outcome {
		case OutcomeSuccess:
			summary.Successful++
		case OutcomeDeactivated:
			summary.Deactivated++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeError:
			summary.Failed++
			s.logger.Error("recurring template failed",
				slog.Int64("template_id", result.TemplateID),
				slog.String("error", result.Error))
		}
	}
	return summary, nil
}

func (s *Scheduler) process(ctx context.Context, tpl Template, today time.Time) TemplateResult {
	result := TemplateResult{TemplateID: tpl.ID, Title: tpl.Title}

	if tpl.EndDate != nil && dateOnly(*tpl.EndDate).Before(today) {
		reason := fmt.Sprintf("end date %s passed", tpl.EndDate.Format("2006-01-02"))
		if err := s.repo.SetStatus(ctx, tpl.ID, StatusInactive, reason); err != nil {
			result.Outcome = OutcomeError
			result.Error = err.Error()
			return result
		}
		result.Outcome = OutcomeDeactivated
		return result
	}

	termDays, err := s.clients.PaymentTermDays(ctx, tpl.ClientID)
	if err != nil {
		if errors.Is(err, ErrMissingClient) {
			result.Outcome = OutcomeSkipped
			result.Error = err.Error()
			return result
		}
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	if termDays <= 0 {
		termDays = billing.DefaultPaymentTermDays
	}

	// Advance first: the guarded update claims the template so an
	// overlapping run finds it no longer due and skips it. The step is
	// taken from the previous next_issue_date, not from today, so a
	// delayed run does not drift the schedule.
	newNext := NextAfter(tpl.NextIssueDate, tpl.Frequency)
	claimed, err := s.repo.Advance(ctx, tpl.ID, tpl.NextIssueDate, newNext, today)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	if !claimed {
		result.Outcome = OutcomeSkipped
		result.Error = "already generated by a concurrent run"
		return result
	}

	status := billing.StatusDraft
	if tpl.AutoSend {
		status = billing.StatusSent
	}
	inv, err := s.invoices.CreateInvoice(ctx, billing.CreateInvoiceInput{
		UserID:        tpl.UserID,
		ClientID:      tpl.ClientID,
		IssueDate:     today,
		DueDate:       today.AddDate(0, 0, termDays),
		Currency:      tpl.Currency,
		Engagement:    tpl.Engagement,
		Items:         cloneItems(tpl.Items),
		Milestones:    cloneMilestones(tpl.Milestones),
		TaxName:       tpl.TaxName,
		TaxPercentage: tpl.TaxPercentage,
		GSTRegistered: tpl.GSTRegistered,
		GSTRate:       tpl.GSTRate,
		TDSApplicable: tpl.TDSApplicable,
		TDSRate:       tpl.TDSRate,
		Status:        status,
	})
	if err != nil {
		// The template was claimed but no invoice exists for this
		// cycle. Surface it; a later manual run can regenerate.
		result.Outcome = OutcomeError
		result.Error = fmt.Sprintf("create invoice: %v", err)
		return result
	}

	result.Outcome = OutcomeSuccess
	result.InvoiceID = inv.ID
	return result
}

func cloneItems(items []billing.LineItem) []billing.LineItem {
	out := make([]billing.LineItem, len(items))
	for i, item := range items {
		item.ID = 0
		out[i] = item
	}
	return out
}

func cloneMilestones(ms []billing.Milestone) []billing.Milestone {
	out := make([]billing.Milestone, len(ms))
	for i, m := range ms {
		m.ID = 0
		out[i] = m
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
