package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type reminderState struct {
	next   *time.Time
	sentOn *time.Time
}

type memoryReminderRepo struct {
	settings map[int64]*Settings
	due      []DueInvoice
	states   map[int64]*reminderState
}

func newMemoryReminderRepo() *memoryReminderRepo {
	return &memoryReminderRepo{
		settings: make(map[int64]*Settings),
		states:   make(map[int64]*reminderState),
	}
}

func (r *memoryReminderRepo) GetSettings(ctx context.Context, userID int64) (*Settings, error) {
	s, ok := r.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryReminderRepo) SaveSettings(ctx context.Context, settings *Settings) error {
	cp := *settings
	r.settings[settings.UserID] = &cp
	return nil
}

func (r *memoryReminderRepo) ListDueInvoices(ctx context.Context, asOf time.Time) ([]DueInvoice, error) {
	var out []DueInvoice
	for _, inv := range r.due {
		state := r.states[inv.InvoiceID]
		if state != nil && state.next != nil && !state.next.After(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memoryReminderRepo) MarkReminded(ctx context.Context, invoiceID int64, sentOn time.Time, next *time.Time) (bool, error) {
	state := r.states[invoiceID]
	if state == nil || state.next == nil || state.next.After(sentOn) {
		return false, nil
	}
	state.next = next
	state.sentOn = &sentOn
	return true, nil
}

func (r *memoryReminderRepo) addDue(inv DueInvoice, next time.Time) {
	r.due = append(r.due, inv)
	r.states[inv.InvoiceID] = &reminderState{next: &next}
}

type captureNotifier struct {
	sent   []Message
	failOn string // recipient that triggers an error
}

func (n *captureNotifier) Notify(ctx context.Context, msg Message) error {
	if n.failOn != "" && msg.Recipient == n.failOn {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func defaultTestSettings(userID int64) *Settings {
	return &Settings{
		UserID:        userID,
		DaysBeforeDue: []int{7, 1},
		DaysAfterDue:  []int{1, 3, 7},
		Subject:       "Reminder: {invoice_number}",
		Body:          "{amount} is {status}",
		Enabled:       true,
	}
}

func dueInvoice(id int64, userID int64, due time.Time) DueInvoice {
	return DueInvoice{
		InvoiceID:     id,
		UserID:        userID,
		Number:        "INV-2025-0001",
		ClientEmail:   "client@example.com",
		Currency:      "INR",
		AmountPayable: 50000,
		DueDate:       due,
	}
}

func reminderSchedulerAt(repo *memoryReminderRepo, notifier NotifierPort, today time.Time) *Scheduler {
	return NewScheduler(repo, notifier, nil).WithClock(func() time.Time { return today })
}

func TestRunSendsAndAdvances(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.settings[1] = defaultTestSettings(1)
	due := d(2025, time.June, 10)
	repo.addDue(dueInvoice(100, 1, due), d(2025, time.June, 9))
	notifier := &captureNotifier{}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 9))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successful)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "Reminder: INV-2025-0001", notifier.sent[0].Subject)
	require.Contains(t, notifier.sent[0].Body, "due in 1 day")

	// One day before due, no closer before-due rung: switch to the
	// first after-due offset.
	state := repo.states[100]
	require.NotNil(t, state.next)
	require.Equal(t, d(2025, time.June, 11), *state.next)
	require.Equal(t, d(2025, time.June, 9), *state.sentOn)
}

func TestRunTerminalUnenrolls(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.settings[1] = defaultTestSettings(1)
	due := d(2025, time.June, 10)
	// Past the last after-due offset: nothing further to schedule.
	repo.addDue(dueInvoice(100, 1, due), d(2025, time.June, 17))
	notifier := &captureNotifier{}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 17))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successful)
	require.Nil(t, repo.states[100].next)
	require.Nil(t, summary.Details[0].NextAt)
}

func TestRunSkipsUserWithoutSettings(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.addDue(dueInvoice(100, 42, d(2025, time.June, 10)), d(2025, time.June, 9))
	notifier := &captureNotifier{}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 9))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, notifier.sent)
}

func TestRunSkipsDisabledUser(t *testing.T) {
	repo := newMemoryReminderRepo()
	settings := defaultTestSettings(1)
	settings.Enabled = false
	repo.settings[1] = settings
	repo.addDue(dueInvoice(100, 1, d(2025, time.June, 10)), d(2025, time.June, 9))
	notifier := &captureNotifier{}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 9))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Empty(t, notifier.sent)
}

func TestRunBatchIsolation(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.settings[1] = defaultTestSettings(1)
	due := d(2025, time.June, 10)
	bad := dueInvoice(101, 1, due)
	bad.ClientEmail = "broken@example.com"
	repo.addDue(dueInvoice(100, 1, due), d(2025, time.June, 9))
	repo.addDue(bad, d(2025, time.June, 9))
	repo.addDue(dueInvoice(102, 1, due), d(2025, time.June, 9))
	notifier := &captureNotifier{failOn: "broken@example.com"}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 9))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, summary.Details[1].Error, "smtp unavailable")
}

func TestRunConcurrentClaimSkips(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.settings[1] = defaultTestSettings(1)
	repo.addDue(dueInvoice(100, 1, d(2025, time.June, 10)), d(2025, time.June, 9))
	notifier := &captureNotifier{}
	sched := reminderSchedulerAt(repo, notifier, d(2025, time.June, 9))

	// The overlapping run wins the claim between ListDueInvoices and
	// MarkReminded; this run still holds the stale due row.
	stale := dueInvoice(100, 1, d(2025, time.June, 10))
	claimed, err := repo.MarkReminded(context.Background(), 100, d(2025, time.June, 9), nil)
	require.NoError(t, err)
	require.True(t, claimed)

	result := sched.process(context.Background(), stale, d(2025, time.June, 9), map[int64]*Settings{})
	require.Equal(t, OutcomeSkipped, result.Outcome)
	require.Empty(t, notifier.sent)
}

func TestSaveSettingsValidation(t *testing.T) {
	repo := newMemoryReminderRepo()
	svc := NewService(repo)

	err := svc.SaveSettings(context.Background(), &Settings{
		UserID: 1, Enabled: true, DaysBeforeDue: []int{120},
	})
	require.ErrorIs(t, err, ErrInvalidSettings)

	err = svc.SaveSettings(context.Background(), &Settings{UserID: 1, Enabled: true})
	require.ErrorIs(t, err, ErrInvalidSettings)

	settings := &Settings{UserID: 1, Enabled: true, DaysBeforeDue: []int{7}}
	require.NoError(t, svc.SaveSettings(context.Background(), settings))
	require.Equal(t, DefaultSubject, settings.Subject)
}

func TestGetSettingsSeedsDefaults(t *testing.T) {
	svc := NewService(newMemoryReminderRepo())

	settings, err := svc.GetSettings(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), settings.UserID)
	require.NotEmpty(t, settings.DaysBeforeDue)
	require.False(t, settings.Enabled)
}

func TestFirstReminderDateEnrollment(t *testing.T) {
	repo := newMemoryReminderRepo()
	repo.settings[1] = defaultTestSettings(1)
	svc := NewService(repo)
	due := d(2025, time.June, 10)

	next, err := svc.FirstReminderDate(context.Background(), 1, due)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, d(2025, time.June, 3), *next)

	// No settings row: invoices stay un-enrolled.
	next, err = svc.FirstReminderDate(context.Background(), 99, due)
	require.NoError(t, err)
	require.Nil(t, next)
}
