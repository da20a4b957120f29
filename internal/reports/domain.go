// Package reports aggregates billing and spending into the revenue
// views shown on the dashboard.
package reports

import "time"

// MonthRevenue is one month's billing activity in one currency.
type MonthRevenue struct {
	Month       string  `json:"month"` // YYYY-MM
	Currency    string  `json:"currency"`
	Invoiced    float64 `json:"invoiced"`
	Collected   float64 `json:"collected"`
	Outstanding float64 `json:"outstanding"`
}

// CurrencyTotal is an aggregate in its original currency plus its INR
// consolidation.
type CurrencyTotal struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	INR      float64 `json:"inr"`
}

// RevenueSummary is the consolidated report for one user and period.
// All consolidated figures are in INR at the configured exchange rate.
type RevenueSummary struct {
	UserID   int64     `json:"user_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	USDRate  float64   `json:"usd_to_inr_rate"`
	Months   []MonthRevenue  `json:"months"`
	Invoiced []CurrencyTotal `json:"invoiced"`
	Expenses []CurrencyTotal `json:"expenses"`

	TotalInvoicedINR    float64 `json:"total_invoiced_inr"`
	TotalCollectedINR   float64 `json:"total_collected_inr"`
	TotalOutstandingINR float64 `json:"total_outstanding_inr"`
	TotalExpensesINR    float64 `json:"total_expenses_inr"`
	NetINR              float64 `json:"net_inr"`

	GeneratedAt time.Time `json:"generated_at"`
}
