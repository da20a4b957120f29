package billing

import (
	"time"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusSent          InvoiceStatus = "sent"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
	StatusOverdue       InvoiceStatus = "overdue"
)

// EngagementType is the billing model for a client relationship.
type EngagementType string

const (
	EngagementService     EngagementType = "service"
	EngagementProject     EngagementType = "project"
	EngagementRetainer    EngagementType = "retainership"
	EngagementMilestone   EngagementType = "milestone"
)

// LineItem is one billed row on a service/project/retainer invoice.
// Amount is always quantity × rate; it is recomputed, never authoritative.
type LineItem struct {
	ID          int64   `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// Milestone is a staged fixed amount on a milestone invoice. The amount
// is entered directly, not derived.
type Milestone struct {
	ID     int64   `json:"id,omitempty"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Invoice is one bill to one client.
type Invoice struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	ClientID int64  `json:"client_id"`
	Number   string `json:"invoice_number"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
	Currency  string    `json:"currency"`

	Engagement EngagementType `json:"engagement_type"`
	Items      []LineItem     `json:"items,omitempty"`
	Milestones []Milestone    `json:"milestones,omitempty"`

	// Tax settings. GST and the generic tax are mutually exclusive; GST
	// wins when both are present. TDSApplicable nil means the user never
	// touched the control and the INR threshold rule may decide.
	TaxName       string  `json:"tax_name,omitempty"`
	TaxPercentage float64 `json:"tax_percentage"`
	GSTRegistered bool    `json:"is_gst_registered"`
	GSTRate       float64 `json:"gst_rate"`
	TDSApplicable *bool   `json:"is_tds_applicable,omitempty"`
	TDSRate       float64 `json:"tds_rate"`

	Subtotal      float64 `json:"subtotal"`
	Tax           float64 `json:"tax"`
	GSTAmount     float64 `json:"gst_amount"`
	TDSAmount     float64 `json:"tds_amount"`
	Total         float64 `json:"total"`
	AmountPayable float64 `json:"amount_payable"`

	Status              InvoiceStatus `json:"status"`
	PaymentDate         *time.Time    `json:"payment_date,omitempty"`
	PaymentMethod       string        `json:"payment_method,omitempty"`
	PartiallyPaidAmount float64       `json:"partially_paid_amount"`

	NextReminderAt *time.Time `json:"next_reminder_date,omitempty"`
	LastReminderAt *time.Time `json:"last_reminder_sent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivePayload returns the engagement payload the invoice's totals are
// derived from. Exactly one of items/milestones is semantically active.
func (i Invoice) ActivePayload() EngagementPayload {
	switch i.Engagement {
	case EngagementMilestone:
		return Milestones(i.Milestones)
	case EngagementProject:
		return ProjectFee(firstItem(i.Items))
	case EngagementRetainer:
		return RetainerFee(firstItem(i.Items))
	default:
		return ServiceItems(i.Items)
	}
}

func firstItem(items []LineItem) LineItem {
	if len(items) == 0 {
		return LineItem{}
	}
	return items[0]
}

// TaxSettings returns the invoice's tax configuration as a TaxMode.
func (i Invoice) TaxSettings() TaxMode {
	if i.GSTRegistered {
		return GST(i.GSTRate)
	}
	if i.TaxPercentage > 0 {
		return GenericTax(i.TaxName, i.TaxPercentage)
	}
	return NoTax()
}

// CreateInvoiceInput carries everything needed to persist an invoice and
// its lines as one logical unit.
type CreateInvoiceInput struct {
	UserID   int64
	ClientID int64
	Number   string

	IssueDate time.Time
	DueDate   time.Time
	Currency  string

	Engagement EngagementType
	Items      []LineItem
	Milestones []Milestone

	TaxName       string
	TaxPercentage float64
	GSTRegistered bool
	GSTRate       float64
	TDSApplicable *bool
	TDSRate       float64

	Status InvoiceStatus
}

// PaymentInput records a payment against an invoice.
type PaymentInput struct {
	Amount float64
	Method string
	PaidAt time.Time
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	UserID   int64
	ClientID int64
	Status   InvoiceStatus
	Limit    int
	Offset   int
}
