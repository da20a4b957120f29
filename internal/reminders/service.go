package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the user has no reminder settings row.
var ErrNotFound = errors.New("reminders: settings not found")

// ErrInvalidSettings indicates an offset outside the accepted range.
var ErrInvalidSettings = errors.New("reminders: invalid settings")

// MaxOffsetDays bounds how far a reminder offset may sit from the due
// date.
const MaxOffsetDays = 90

// DefaultSubject and DefaultBody seed settings for users who have
// never customized their templates.
const (
	DefaultSubject = "Payment reminder: invoice {invoice_number}"
	DefaultBody    = "Hi,\n\nThis is a reminder that invoice {invoice_number} for {amount} is {status} (due {due_date}).\n\nThank you."
)

// RepositoryPort defines data access for settings and due invoices.
type RepositoryPort interface {
	GetSettings(ctx context.Context, userID int64) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error
	// ListDueInvoices returns enrolled unpaid invoices whose next
	// reminder date has arrived, joined with the client email.
	ListDueInvoices(ctx context.Context, asOf time.Time) ([]DueInvoice, error)
	// MarkReminded advances the invoice's reminder state, guarded by
	// the previous next date. A false return means another run already
	// claimed the invoice.
	MarkReminded(ctx context.Context, invoiceID int64, sentOn time.Time, next *time.Time) (bool, error)
}

// NotifierPort hands a rendered message to the delivery channel.
type NotifierPort interface {
	Notify(ctx context.Context, msg Message) error
}

// Scheduler sends due reminders once per cycle.
type Scheduler struct {
	repo     RepositoryPort
	notifier NotifierPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler builds a Scheduler instance.
func NewScheduler(repo RepositoryPort, notifier NotifierPort, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// WithClock overrides the scheduler clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run processes every enrolled invoice whose reminder date has
// arrived. Invoices are independent: one failure is recorded in the
// summary and the batch continues. Run only returns an error when the
// due list itself cannot be loaded.
func (s *Scheduler) Run(ctx context.Context) (RunSummary, error) {
	today := dateOnly(s.now())
	summary := RunSummary{RunID: uuid.NewString(), AsOf: today}

	due, err := s.repo.ListDueInvoices(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("reminders: list due invoices: %w", err)
	}

	// Settings are per-user; cache them across the batch.
	settingsByUser := make(map[int64]*Settings)

	for _, inv := range due {
		result := s.process(ctx, inv, today, settingsByUser)
		summary.Processed++
		summary.Details = append(summary.Details, result)
		switch result.Outcome {
		case OutcomeSuccess:
			summary.Successful++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeError:
			summary.Failed++
			s.logger.Error("reminder failed",
				slog.Int64("invoice_id", result.InvoiceID),
				slog.String("error", result.Error))
		}
	}
	return summary, nil
}

func (s *Scheduler) process(ctx context.Context, inv DueInvoice, today time.Time, cache map[int64]*Settings) InvoiceResult {
	result := InvoiceResult{InvoiceID: inv.InvoiceID, Number: inv.Number}

	settings, ok := cache[inv.UserID]
	if !ok {
		loaded, err := s.repo.GetSettings(ctx, inv.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			result.Outcome = OutcomeError
			result.Error = err.Error()
			return result
		}
		settings = loaded // nil when not found
		cache[inv.UserID] = settings
	}
	if settings == nil || !settings.Enabled {
		result.Outcome = OutcomeSkipped
		result.Error = "reminders not enabled for user"
		return result
	}

	next := NextReminderDate(today, inv.DueDate, *settings)

	// Claim before sending so an overlapping run cannot double-send.
	claimed, err := s.repo.MarkReminded(ctx, inv.InvoiceID, today, next)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	if !claimed {
		result.Outcome = OutcomeSkipped
		result.Error = "already reminded by a concurrent run"
		return result
	}

	msg := RenderMessage(inv, *settings, today)
	if err := s.notifier.Notify(ctx, msg); err != nil {
		result.Outcome = OutcomeError
		result.Error = fmt.Sprintf("dispatch: %v", err)
		return result
	}

	result.Outcome = OutcomeSuccess
	result.NextAt = next
	return result
}

// Service manages per-user reminder settings and enrolls invoices on
// send.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetSettings returns the user's settings, seeding defaults for users
// who never saved any.
func (s *Service) GetSettings(ctx context.Context, userID int64) (*Settings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Settings{
			UserID:        userID,
			DaysBeforeDue: []int{7, 1},
			DaysAfterDue:  []int{1, 7, 15},
			Subject:       DefaultSubject,
			Body:          DefaultBody,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings validates and upserts the user's settings.
func (s *Service) SaveSettings(ctx context.Context, settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	if settings.Subject == "" {
		settings.Subject = DefaultSubject
	}
	if settings.Body == "" {
		settings.Body = DefaultBody
	}
	return s.repo.SaveSettings(ctx, settings)
}

// FirstReminderDate reports where a freshly sent invoice enrolls in
// the user's reminder schedule. Satisfies billing.ReminderEnroller. A
// nil date with a nil error means the user has reminders turned off.
func (s *Service) FirstReminderDate(ctx context.Context, userID int64, due time.Time) (*time.Time, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, nil
	}
	return FirstReminderDate(due, *settings), nil
}

func validateSettings(settings *Settings) error {
	if settings.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidSettings)
	}
	if settings.Enabled && len(settings.DaysBeforeDue) == 0 && len(settings.DaysAfterDue) == 0 {
		return fmt.Errorf("%w: at least one offset is required when enabled", ErrInvalidSettings)
	}
	for _, o := range settings.DaysBeforeDue {
		if o < 1 || o > MaxOffsetDays {
			return fmt.Errorf("%w: before-due offset %d out of range 1..%d", ErrInvalidSettings, o, MaxOffsetDays)
		}
	}
	for _, o := range settings.DaysAfterDue {
		if o < 1 || o > MaxOffsetDays {
			return fmt.Errorf("%w: after-due offset %d out of range 1..%d", ErrInvalidSettings, o, MaxOffsetDays)
		}
	}
	return nil
}
