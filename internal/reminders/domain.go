// Package reminders nudges clients about unpaid invoices on a
// per-user schedule of day offsets around the due date.
package reminders

import "time"

// Settings is the per-user reminder configuration. Both offset lists
// hold positive day counts; an empty list simply means no reminders on
// that side of the due date.
type Settings struct {
	UserID        int64     `json:"user_id"`
	DaysBeforeDue []int     `json:"days_before_due"`
	DaysAfterDue  []int     `json:"days_after_due"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is a fully rendered notification ready for dispatch.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// DueInvoice is the slice of an invoice the scheduler needs, joined
// with the client's contact email.
type DueInvoice struct {
	InvoiceID     int64     `json:"invoice_id"`
	UserID        int64     `json:"user_id"`
	Number        string    `json:"number"`
	ClientEmail   string    `json:"client_email"`
	Currency      string    `json:"currency"`
	AmountPayable float64   `json:"amount_payable"`
	DueDate       time.Time `json:"due_date"`
}

// Outcome classifies what happened to one invoice during a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// InvoiceResult is one invoice's outcome within a run.
type InvoiceResult struct {
	InvoiceID int64      `json:"invoice_id"`
	Number    string     `json:"number"`
	Outcome   Outcome    `json:"outcome"`
	NextAt    *time.Time `json:"next_reminder_date,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RunSummary aggregates one scheduler run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	AsOf       time.Time       `json:"as_of"`
	Processed  int             `json:"processed"`
	Successful int             `json:"successful"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Details    []InvoiceResult `json:"details"`
}
