package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold/billfold/internal/billing"
)

// Repository provides PostgreSQL backed persistence for reminder
// settings and the due-invoice scan.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSettings loads the user's reminder settings.
func (r *Repository) GetSettings(ctx context.Context, userID int64) (*Settings, error) {
	const query = `
		SELECT user_id, days_before_due, days_after_due, subject, body, enabled, created_at, updated_at
		FROM reminder_settings
		WHERE user_id = $1`

	var s Settings
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.DaysBeforeDue, &s.DaysAfterDue,
		&s.Subject, &s.Body, &s.Enabled, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings upserts the user's settings row.
func (r *Repository) SaveSettings(ctx context.Context, settings *Settings) error {
	const query = `
		INSERT INTO reminder_settings (user_id, days_before_due, days_after_due, subject, body, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			days_before_due = EXCLUDED.days_before_due,
			days_after_due = EXCLUDED.days_after_due,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		settings.UserID, settings.DaysBeforeDue, settings.DaysAfterDue,
		settings.Subject, settings.Body, settings.Enabled,
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("reminders: save settings: %w", err)
	}
	return nil
}

// ListDueInvoices returns enrolled unpaid invoices whose next reminder
// date has arrived, joined with the owning client's email.
func (r *Repository) ListDueInvoices(ctx context.Context, asOf time.Time) ([]DueInvoice, error) {
	const query = `
		SELECT i.id, i.user_id, i.number, COALESCE(c.email, ''), i.currency, i.amount_payable, i.due_date
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.status IN ($1, $2, $3)
		  AND i.next_reminder_date IS NOT NULL
		  AND i.next_reminder_date <= $4
		ORDER BY i.id`

	rows, err := r.pool.Query(ctx, query,
		billing.StatusSent, billing.StatusPartiallyPaid, billing.StatusOverdue, asOf)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due invoices: %w", err)
	}
	defer rows.Close()

	var out []DueInvoice
	for rows.Next() {
		var inv DueInvoice
		if err := rows.Scan(&inv.InvoiceID, &inv.UserID, &inv.Number,
			&inv.ClientEmail, &inv.Currency, &inv.AmountPayable, &inv.DueDate); err != nil {
			return nil, fmt.Errorf("reminders: scan due invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkReminded records the send and advances the schedule. The update
// is guarded by the still-due next date so an overlapping run that
// already advanced the invoice claims nothing here.
func (r *Repository) MarkReminded(ctx context.Context, invoiceID int64, sentOn time.Time, next *time.Time) (bool, error) {
	var nextDate pgtype.Timestamptz
	if next != nil {
		nextDate = pgtype.Timestamptz{Time: *next, Valid: true}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET last_reminder_sent = $2, next_reminder_date = $3, updated_at = NOW()
		WHERE id = $1 AND next_reminder_date IS NOT NULL AND next_reminder_date <= $2`,
		invoiceID, sentOn, nextDate,
	)
	if err != nil {
		return false, fmt.Errorf("reminders: mark reminded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
