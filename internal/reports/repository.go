package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed aggregates for reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RevenueByMonth buckets invoices by issue month and currency.
// Collected counts paid invoices plus partial payments; outstanding is
// what remains billable on open invoices.
func (r *Repository) RevenueByMonth(ctx context.Context, userID int64, from, to time.Time) ([]MonthRevenue, error) {
	const query = `
		SELECT to_char(issue_date, 'YYYY-MM') AS month,
		       currency,
		       COALESCE(SUM(amount_payable), 0),
		       COALESCE(SUM(CASE
		           WHEN status = 'paid' THEN amount_payable
		           ELSE partially_paid_amount
		       END), 0),
		       COALESCE(SUM(CASE
		           WHEN status IN ('sent', 'partially_paid', 'overdue')
		           THEN amount_payable - partially_paid_amount
		           ELSE 0
		       END), 0)
		FROM invoices
		WHERE user_id = $1 AND status <> 'draft'
		  AND issue_date >= $2 AND issue_date <= $3
		GROUP BY 1, 2
		ORDER BY 1, 2`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: revenue by month: %w", err)
	}
	defer rows.Close()

	var out []MonthRevenue
	for rows.Next() {
		var m MonthRevenue
		if err := rows.Scan(&m.Month, &m.Currency, &m.Invoiced, &m.Collected, &m.Outstanding); err != nil {
			return nil, fmt.Errorf("reports: scan month revenue: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ExpenseTotals sums live expenses per currency for the period.
func (r *Repository) ExpenseTotals(ctx context.Context, userID int64, from, to time.Time) (map[string]float64, error) {
	const query = `
		SELECT currency, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND spent_on >= $2 AND spent_on <= $3
		GROUP BY currency`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: expense totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var currency string
		var amount float64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("reports: scan expense total: %w", err)
		}
		out[currency] = amount
	}
	return out, rows.Err()
}
