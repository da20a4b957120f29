package recurring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/money"
)

type memoryTemplateRepo struct {
	templates map[int64]*Template
	nextID    int64
}

func newMemoryTemplateRepo() *memoryTemplateRepo {
	return &memoryTemplateRepo{templates: make(map[int64]*Template)}
}

func (r *memoryTemplateRepo) CreateTemplate(ctx context.Context, tpl *Template) error {
	r.nextID++
	tpl.ID = r.nextID
	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

func (r *memoryTemplateRepo) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (r *memoryTemplateRepo) ListTemplates(ctx context.Context, userID int64) ([]Template, error) {
	var out []Template
	for _, tpl := range r.templates {
		if userID == 0 || tpl.UserID == userID {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (r *memoryTemplateRepo) ListDue(ctx context.Context, asOf time.Time) ([]Template, error) {
	var out []Template
	for id := int64(1); id <= r.nextID; id++ {
		tpl, ok := r.templates[id]
		if !ok {
			continue
		}
		if tpl.Status == StatusActive && !tpl.NextIssueDate.After(asOf) {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (r *memoryTemplateRepo) SetStatus(ctx context.Context, id int64, status TemplateStatus, reason string) error {
	tpl, ok := r.templates[id]
	if !ok {
		return ErrNotFound
	}
	tpl.Status = status
	tpl.DeactivationReason = reason
	return nil
}

func (r *memoryTemplateRepo) Advance(ctx context.Context, id int64, prevNext, newNext, generatedOn time.Time) (bool, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return false, ErrNotFound
	}
	if !tpl.NextIssueDate.Equal(prevNext) {
		return false, nil
	}
	tpl.NextIssueDate = newNext
	tpl.LastGenerated = &generatedOn
	return true, nil
}

type fakeInvoices struct {
	created []billing.CreateInvoiceInput
	failOn  map[int64]error // keyed by client id
	nextID  int64
}

func (f *fakeInvoices) CreateInvoice(ctx context.Context, input billing.CreateInvoiceInput) (*billing.Invoice, error) {
	if err := f.failOn[input.ClientID]; err != nil {
		return nil, err
	}
	f.nextID++
	f.created = append(f.created, input)
	return &billing.Invoice{ID: f.nextID, Status: input.Status, DueDate: input.DueDate}, nil
}

type fakeClientTerms struct {
	terms   map[int64]int
	missing map[int64]bool
}

func (f fakeClientTerms) PaymentTermDays(ctx context.Context, clientID int64) (int, error) {
	if f.missing[clientID] {
		return 0, ErrMissingClient
	}
	return f.terms[clientID], nil
}

func activeTemplate(id, clientID int64, next time.Time, freq Frequency) *Template {
	return &Template{
		ID:            id,
		UserID:        1,
		ClientID:      clientID,
		Title:         "Monthly retainer",
		Frequency:     freq,
		StartDate:     next,
		NextIssueDate: next,
		Status:        StatusActive,
		Engagement:    billing.EngagementRetainer,
		Currency:      money.INR,
		Items:         []billing.LineItem{{Description: "Retainer", Quantity: 1, Amount: 40000}},
	}
}

func seed(r *memoryTemplateRepo, tpl *Template) {
	r.nextID++
	tpl.ID = r.nextID
	r.templates[tpl.ID] = tpl
}

func schedulerAt(repo *memoryTemplateRepo, invoices *fakeInvoices, clients ClientTermsPort, today time.Time) *Scheduler {
	return NewScheduler(repo, invoices, clients, nil).WithClock(func() time.Time { return today })
}

func TestRunGeneratesDueTemplates(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 1, d(2025, time.January, 31), Monthly))
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.January, 31))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Successful)
	require.NotEmpty(t, summary.RunID)
	require.Len(t, invoices.created, 1)

	created := invoices.created[0]
	require.Equal(t, d(2025, time.January, 31), created.IssueDate)
	// No client term configured: the 15-day default applies.
	require.Equal(t, d(2025, time.February, 15), created.DueDate)
	require.Equal(t, billing.StatusDraft, created.Status)
	require.Equal(t, "Retainer", created.Items[0].Description)

	// Month overflow clamps: Jan 31 + 1 month = Feb 28 in a non-leap year.
	tpl, err := repo.GetTemplate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, d(2025, time.February, 28), tpl.NextIssueDate)
	require.NotNil(t, tpl.LastGenerated)
	require.Equal(t, d(2025, time.January, 31), *tpl.LastGenerated)
}

func TestRunHonorsClientPaymentTerm(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 9, d(2025, time.June, 1), Weekly))
	invoices := &fakeInvoices{}
	clients := fakeClientTerms{terms: map[int64]int{9: 30}}
	sched := schedulerAt(repo, invoices, clients, d(2025, time.June, 1))

	_, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, d(2025, time.July, 1), invoices.created[0].DueDate)
}

func TestRunAutoSend(t *testing.T) {
	repo := newMemoryTemplateRepo()
	tpl := activeTemplate(0, 1, d(2025, time.June, 1), Weekly)
	tpl.AutoSend = true
	seed(repo, tpl)
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.June, 1))

	_, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, billing.StatusSent, invoices.created[0].Status)
}

func TestRunDeactivatesExpiredTemplate(t *testing.T) {
	repo := newMemoryTemplateRepo()
	tpl := activeTemplate(0, 1, d(2025, time.January, 1), Monthly)
	end := d(2025, time.January, 1)
	tpl.EndDate = &end
	seed(repo, tpl)
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.January, 15))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Deactivated)
	require.Zero(t, summary.Successful)
	require.Empty(t, invoices.created)
	require.Equal(t, OutcomeDeactivated, summary.Details[0].Outcome)

	stored, err := repo.GetTemplate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, stored.Status)
	require.NotEmpty(t, stored.DeactivationReason)
}

// A template whose end date is today still generates: deactivation
// requires the end date to be strictly in the past.
func TestRunEndDateTodayStillGenerates(t *testing.T) {
	repo := newMemoryTemplateRepo()
	tpl := activeTemplate(0, 1, d(2025, time.January, 15), Monthly)
	end := d(2025, time.January, 15)
	tpl.EndDate = &end
	seed(repo, tpl)
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.January, 15))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successful)
	require.Len(t, invoices.created, 1)
}

// One template's persistence failure is recorded and the batch
// continues through the rest.
func TestRunBatchIsolation(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 1, d(2025, time.June, 1), Weekly))
	seed(repo, activeTemplate(0, 2, d(2025, time.June, 1), Weekly))
	seed(repo, activeTemplate(0, 3, d(2025, time.June, 1), Weekly))
	invoices := &fakeInvoices{failOn: map[int64]error{2: errors.New("insert failed")}}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.June, 1))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Details, 3)
	require.Equal(t, OutcomeError, summary.Details[1].Outcome)
	require.Contains(t, summary.Details[1].Error, "insert failed")
}

func TestRunSkipsMissingClient(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 1, d(2025, time.June, 1), Weekly))
	invoices := &fakeInvoices{}
	clients := fakeClientTerms{missing: map[int64]bool{1: true}}
	sched := schedulerAt(repo, invoices, clients, d(2025, time.June, 1))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Zero(t, summary.Failed)
	require.Empty(t, invoices.created)
}

// A template already advanced by a concurrent run is skipped, not
// generated twice.
func TestRunConcurrentAdvanceSkips(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 1, d(2025, time.June, 1), Weekly))
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.June, 1))

	// Simulate the overlapping run winning the claim between ListDue
	// and Advance.
	due, err := repo.ListDue(context.Background(), d(2025, time.June, 1))
	require.NoError(t, err)
	claimed, err := repo.Advance(context.Background(), 1, due[0].NextIssueDate, d(2025, time.June, 8), d(2025, time.June, 1))
	require.NoError(t, err)
	require.True(t, claimed)

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, invoices.created)
	require.Zero(t, summary.Successful)
}

func TestRunNoneDue(t *testing.T) {
	repo := newMemoryTemplateRepo()
	seed(repo, activeTemplate(0, 1, d(2025, time.July, 1), Monthly))
	invoices := &fakeInvoices{}
	sched := schedulerAt(repo, invoices, fakeClientTerms{}, d(2025, time.June, 1))

	summary, err := sched.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Processed)
}
