package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billfold/billfold/internal/money"
)

// ErrNotFound indicates the invoice does not exist.
var ErrNotFound = errors.New("billing: invoice not found")

// ErrInvalidTransition indicates a status change the lifecycle does not
// allow.
var ErrInvalidTransition = errors.New("billing: invalid status transition")

// DefaultPaymentTermDays is applied when neither the caller nor the
// client supplies a due date.
const DefaultPaymentTermDays = 15

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput, totals TaxBreakdown) (*Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	UpdateStatus(ctx context.Context, id int64, status InvoiceStatus) error
	RecordPayment(ctx context.Context, id int64, status InvoiceStatus, paidAt time.Time, method string, partialAmount float64) error
	EnrollReminder(ctx context.Context, id int64, next *time.Time) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	NextInvoiceNumber(ctx context.Context, userID int64, year int) (string, error)
}

// ReminderEnroller supplies the first reminder date for an invoice when
// it is sent. Implemented by the reminders service; a nil enroller means
// reminders stay un-enrolled.
type ReminderEnroller interface {
	FirstReminderDate(ctx context.Context, userID int64, due time.Time) (*time.Time, error)
}

// Service handles invoice business logic.
type Service struct {
	repo     RepositoryPort
	enroller ReminderEnroller
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, enroller ReminderEnroller) *Service {
	return &Service{repo: repo, enroller: enroller, now: time.Now}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInvoice validates the draft, recomputes its totals and persists
// the invoice with its lines as one logical unit.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if input.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if input.ClientID <= 0 {
		return nil, fmt.Errorf("%w: client id required", ErrInvalidInput)
	}
	if input.Currency != money.INR && input.Currency != money.USD {
		return nil, fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, input.Currency)
	}

	if input.IssueDate.IsZero() {
		input.IssueDate = s.now()
	}
	if input.DueDate.IsZero() {
		input.DueDate = input.IssueDate.AddDate(0, 0, DefaultPaymentTermDays)
	}
	if input.Status == "" {
		input.Status = StatusDraft
	}
	input.Items = NormalizeItems(input.Items)

	totals, err := s.resolve(input)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Number) == "" {
		number, err := s.repo.NextInvoiceNumber(ctx, input.UserID, input.IssueDate.Year())
		if err != nil {
			return nil, fmt.Errorf("billing: generate invoice number: %w", err)
		}
		input.Number = number
	}

	inv, err := s.repo.CreateInvoice(ctx, input, totals)
	if err != nil {
		return nil, err
	}

	if inv.Status == StatusSent {
		if err := s.enroll(ctx, inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// UpdateInvoice recomputes totals from the edited inputs and persists
// the result. Computed fields are never taken from the caller.
func (s *Service) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if inv == nil || inv.ID <= 0 {
		return fmt.Errorf("%w: invoice id required", ErrInvalidInput)
	}
	inv.Items = NormalizeItems(inv.Items)

	totals, err := ResolveTotals(TotalsInput{
		Payload:   inv.ActivePayload(),
		Currency:  inv.Currency,
		Tax:       inv.TaxSettings(),
		TDSChoice: inv.TDSApplicable,
		TDSRate:   inv.TDSRate,
	})
	if err != nil {
		return err
	}
	applyTotals(inv, totals)
	inv.UpdatedAt = s.now()
	return s.repo.UpdateInvoice(ctx, inv)
}

// GetInvoice retrieves an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invoice id required", ErrInvalidInput)
	}
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices retrieves invoices matching the filter.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 100
	}
	return s.repo.ListInvoices(ctx, req)
}

// MarkSent moves a draft invoice to sent and enrolls it for reminders.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != StatusDraft {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, StatusSent)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusSent); err != nil {
		return err
	}
	inv.Status = StatusSent
	return s.enroll(ctx, inv)
}

// RecordPayment applies a full or partial payment. Accumulated partial
// payments reaching the amount payable settle the invoice.
func (s *Service) RecordPayment(ctx context.Context, id int64, payment PaymentInput) (*Invoice, error) {
	if !money.IsFinite(payment.Amount) || payment.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case StatusSent, StatusPartiallyPaid, StatusOverdue:
	default:
		return nil, fmt.Errorf("%w: cannot pay %s invoice", ErrInvalidTransition, inv.Status)
	}

	paidAt := payment.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	collected := money.Round2(inv.PartiallyPaidAmount + payment.Amount)
	status := StatusPartiallyPaid
	if collected >= inv.AmountPayable {
		status = StatusPaid
	}
	if err := s.repo.RecordPayment(ctx, id, status, paidAt, payment.Method, collected); err != nil {
		return nil, err
	}

	inv.Status = status
	inv.PaymentDate = &paidAt
	inv.PaymentMethod = payment.Method
	inv.PartiallyPaidAmount = collected
	return inv, nil
}

// MarkOverdue flips past-due sent and partially paid invoices to
// overdue, returning how many rows changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return s.repo.MarkOverdue(ctx, asOf)
}

func (s *Service) resolve(input CreateInvoiceInput) (TaxBreakdown, error) {
	var payload EngagementPayload
	switch input.Engagement {
	case EngagementMilestone:
		payload = Milestones(input.Milestones)
	case EngagementProject:
		payload = ProjectFee(firstItem(input.Items))
	case EngagementRetainer:
		payload = RetainerFee(firstItem(input.Items))
	case EngagementService:
		payload = ServiceItems(input.Items)
	default:
		return TaxBreakdown{}, fmt.Errorf("%w: unknown engagement type %q", ErrInvalidInput, input.Engagement)
	}

	var mode TaxMode
	switch {
	case input.GSTRegistered:
		mode = GST(input.GSTRate)
	case input.TaxPercentage > 0:
		mode = GenericTax(input.TaxName, input.TaxPercentage)
	default:
		mode = NoTax()
	}

	return ResolveTotals(TotalsInput{
		Payload:   payload,
		Currency:  input.Currency,
		Tax:       mode,
		TDSChoice: input.TDSApplicable,
		TDSRate:   input.TDSRate,
	})
}

func (s *Service) enroll(ctx context.Context, inv *Invoice) error {
	if s.enroller == nil {
		return nil
	}
	next, err := s.enroller.FirstReminderDate(ctx, inv.UserID, inv.DueDate)
	if err != nil {
		return fmt.Errorf("billing: first reminder date: %w", err)
	}
	if next == nil {
		// No reminder settings is not an error for sending.
		return nil
	}
	return s.repo.EnrollReminder(ctx, inv.ID, next)
}

func applyTotals(inv *Invoice, totals TaxBreakdown) {
	inv.Subtotal = totals.Subtotal
	inv.Tax = totals.Tax
	inv.GSTAmount = totals.GSTAmount
	inv.TDSAmount = totals.TDSAmount
	inv.Total = totals.Total
	inv.AmountPayable = totals.AmountPayable
}
