// Package clients manages the freelancer's client directory.
package clients

import "time"

// Client is one billable counterparty. PaymentTermDays of zero means
// the client has no negotiated term and invoices fall back to the
// default.
type Client struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	GSTIN           string    `json:"gstin,omitempty"`
	Currency        string    `json:"currency"`
	PaymentTermDays int       `json:"payment_term_days"`
	Archived        bool      `json:"archived"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListFilters narrows a client listing.
type ListFilters struct {
	UserID   int64
	Search   string
	Archived *bool
	Page     int
	Limit    int
}
