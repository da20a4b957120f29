// Package expenses tracks business spending for the freelancer's
// profit view.
package expenses

import "time"

// Expense is one spend entry. Category is resolved by name at read
// time; a deleted or missing category renders as "Uncategorized"
// rather than breaking the listing.
type Expense struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	SpentOn     time.Time  `json:"spent_on"`
	ReceiptURL  string     `json:"receipt_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// UncategorizedLabel is what a missing category renders as.
const UncategorizedLabel = "Uncategorized"

// Category groups expenses for reporting.
type Category struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// ListFilters narrows an expense listing.
type ListFilters struct {
	UserID     int64
	CategoryID *int64
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}
