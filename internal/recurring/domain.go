// Package recurring materializes recurring invoice templates into
// concrete invoices on a daily schedule.
package recurring

import (
	"time"

	"github.com/billfold/billfold/internal/billing"
)

// Frequency enumerates how often a template issues an invoice.
type Frequency string

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Valid reports whether the frequency is one of the supported steps.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// TemplateStatus enumerates template states.
type TemplateStatus string

const (
	StatusActive   TemplateStatus = "active"
	StatusInactive TemplateStatus = "inactive"
)

// Template is a frozen invoice shape plus a schedule. Only the scheduler
// advances NextIssueDate; it moves strictly forward one frequency step
// per generated invoice.
type Template struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	ClientID int64  `json:"client_id"`
	Title    string `json:"title"`

	Frequency     Frequency  `json:"frequency"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	NextIssueDate time.Time  `json:"next_issue_date"`
	LastGenerated *time.Time `json:"last_generated,omitempty"`

	Status   TemplateStatus `json:"status"`
	AutoSend bool           `json:"auto_send"`

	// Frozen invoice snapshot copied verbatim onto generated invoices.
	Engagement    billing.EngagementType `json:"engagement_type"`
	Items         []billing.LineItem     `json:"items,omitempty"`
	Milestones    []billing.Milestone    `json:"milestones,omitempty"`
	Currency      string                 `json:"currency"`
	TaxName       string                 `json:"tax_name,omitempty"`
	TaxPercentage float64                `json:"tax_percentage"`
	GSTRegistered bool                   `json:"is_gst_registered"`
	GSTRate       float64                `json:"gst_rate"`
	TDSApplicable *bool                  `json:"is_tds_applicable,omitempty"`
	TDSRate       float64                `json:"tds_rate"`

	DeactivationReason string    `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Outcome classifies what happened to one template during a run.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeDeactivated Outcome = "deactivated"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeError       Outcome = "error"
)

// TemplateResult is one template's outcome within a run.
type TemplateResult struct {
	TemplateID int64   `json:"template_id"`
	Title      string  `json:"title"`
	Outcome    Outcome `json:"outcome"`
	InvoiceID  int64   `json:"invoice_id,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RunSummary aggregates one scheduler run. Processed counts every due
// template; individual failures never abort the batch.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	AsOf        time.Time        `json:"as_of"`
	Processed   int              `json:"processed"`
	Successful  int              `json:"successful"`
	Deactivated int              `json:"deactivated"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	Details     []TemplateResult `json:"details"`
}
