package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold/billfold/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInvoice inserts the invoice and its lines in one transaction so
// an invoice row without lines can never be observed.
func (r *Repository) CreateInvoice(ctx context.Context, input CreateInvoiceInput, totals TaxBreakdown) (*Invoice, error) {
	inv := &Invoice{
		UserID:        input.UserID,
		ClientID:      input.ClientID,
		Number:        input.Number,
		IssueDate:     input.IssueDate,
		DueDate:       input.DueDate,
		Currency:      input.Currency,
		Engagement:    input.Engagement,
		Items:         input.Items,
		Milestones:    input.Milestones,
		TaxName:       input.TaxName,
		TaxPercentage: input.TaxPercentage,
		GSTRegistered: input.GSTRegistered,
		GSTRate:       input.GSTRate,
		TDSApplicable: input.TDSApplicable,
		TDSRate:       input.TDSRate,
		Status:        input.Status,
	}
	applyTotals(inv, totals)

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var tdsChoice pgtype.Bool
		if input.TDSApplicable != nil {
			tdsChoice = pgtype.Bool{Bool: *input.TDSApplicable, Valid: true}
		}

		const query = `
			INSERT INTO invoices (
				user_id, client_id, number, issue_date, due_date, currency,
				engagement_type, tax_name, tax_percentage, is_gst_registered, gst_rate,
				is_tds_applicable, tds_rate,
				subtotal, tax, gst_amount, tds_amount, total, amount_payable,
				status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW(),NOW())
			RETURNING id, created_at, updated_at`

		if err := tx.QueryRow(ctx, query,
			input.UserID, input.ClientID, input.Number, input.IssueDate, input.DueDate, input.Currency,
			input.Engagement, nullString(input.TaxName), input.TaxPercentage, input.GSTRegistered, input.GSTRate,
			tdsChoice, input.TDSRate,
			totals.Subtotal, totals.Tax, totals.GSTAmount, totals.TDSAmount, totals.Total, totals.AmountPayable,
			input.Status,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return fmt.Errorf("billing: insert invoice: %w", err)
		}

		if err := insertLines(ctx, tx, inv.ID, input.Items, input.Milestones); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, items []LineItem, milestones []Milestone) error {
	for i := range items {
		if err := tx.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, rate, amount)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id`,
			invoiceID, i, items[i].Description, items[i].Quantity, items[i].Rate, items[i].Amount,
		).Scan(&items[i].ID); err != nil {
			return fmt.Errorf("billing: insert item %d: %w", i, err)
		}
	}
	for i := range milestones {
		if err := tx.QueryRow(ctx, `
			INSERT INTO invoice_milestones (invoice_id, position, name, amount)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			invoiceID, i, milestones[i].Name, milestones[i].Amount,
		).Scan(&milestones[i].ID); err != nil {
			return fmt.Errorf("billing: insert milestone %d: %w", i, err)
		}
	}
	return nil
}

// GetInvoice retrieves an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	const query = `
		SELECT id, user_id, client_id, number, issue_date, due_date, currency,
			engagement_type, tax_name, tax_percentage, is_gst_registered, gst_rate,
			is_tds_applicable, tds_rate,
			subtotal, tax, gst_amount, tds_amount, total, amount_payable,
			status, payment_date, payment_method, partially_paid_amount,
			next_reminder_date, last_reminder_sent, created_at, updated_at
		FROM invoices
		WHERE id = $1`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices retrieves invoices matching the filter, newest first.
// Lines are not loaded for listings.
func (r *Repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	query := `
		SELECT id, user_id, client_id, number, issue_date, due_date, currency,
			engagement_type, tax_name, tax_percentage, is_gst_registered, gst_rate,
			is_tds_applicable, tds_rate,
			subtotal, tax, gst_amount, tds_amount, total, amount_payable,
			status, payment_date, payment_method, partially_paid_amount,
			next_reminder_date, last_reminder_sent, created_at, updated_at
		FROM invoices
		WHERE user_id = $1`
	args := []any{req.UserID}
	if req.ClientID > 0 {
		args = append(args, req.ClientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, req.Limit, req.Offset)
	query += fmt.Sprintf(" ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// UpdateInvoice replaces the invoice row and its lines.
func (r *Repository) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var tdsChoice pgtype.Bool
		if inv.TDSApplicable != nil {
			tdsChoice = pgtype.Bool{Bool: *inv.TDSApplicable, Valid: true}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE invoices SET
				client_id=$2, issue_date=$3, due_date=$4, currency=$5,
				engagement_type=$6, tax_name=$7, tax_percentage=$8,
				is_gst_registered=$9, gst_rate=$10, is_tds_applicable=$11, tds_rate=$12,
				subtotal=$13, tax=$14, gst_amount=$15, tds_amount=$16, total=$17, amount_payable=$18,
				updated_at=NOW()
			WHERE id=$1`,
			inv.ID, inv.ClientID, inv.IssueDate, inv.DueDate, inv.Currency,
			inv.Engagement, nullString(inv.TaxName), inv.TaxPercentage,
			inv.GSTRegistered, inv.GSTRate, tdsChoice, inv.TDSRate,
			inv.Subtotal, inv.Tax, inv.GSTAmount, inv.TDSAmount, inv.Total, inv.AmountPayable,
		)
		if err != nil {
			return fmt.Errorf("billing: update invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, inv.ID); err != nil {
			return fmt.Errorf("billing: clear items: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_milestones WHERE invoice_id=$1`, inv.ID); err != nil {
			return fmt.Errorf("billing: clear milestones: %w", err)
		}
		return insertLines(ctx, tx, inv.ID, inv.Items, inv.Milestones)
	})
}

// UpdateStatus changes the invoice status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("billing: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordPayment persists payment tracking fields with the new status.
func (r *Repository) RecordPayment(ctx context.Context, id int64, status InvoiceStatus, paidAt time.Time, method string, partialAmount float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status=$2, payment_date=$3, payment_method=$4, partially_paid_amount=$5, updated_at=NOW()
		WHERE id=$1`,
		id, status, paidAt, nullString(method), partialAmount,
	)
	if err != nil {
		return fmt.Errorf("billing: record payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnrollReminder sets the next reminder date; nil clears enrollment.
func (r *Repository) EnrollReminder(ctx context.Context, id int64, next *time.Time) error {
	var nextDate pgtype.Timestamptz
	if next != nil {
		nextDate = pgtype.Timestamptz{Time: *next, Valid: true}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET next_reminder_date=$2, updated_at=NOW() WHERE id=$1`, id, nextDate)
	if err != nil {
		return fmt.Errorf("billing: enroll reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverdue flips past-due open invoices to overdue.
func (r *Repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status=$1, updated_at=NOW()
		WHERE status IN ($2, $3) AND due_date < $4`,
		StatusOverdue, StatusSent, StatusPartiallyPaid, asOf,
	)
	if err != nil {
		return 0, fmt.Errorf("billing: mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NextInvoiceNumber allocates the next INV-YYYY-NNNN number for the
// user's year via an upsert counter, safe under concurrent callers.
func (r *Repository) NextInvoiceNumber(ctx context.Context, userID int64, year int) (string, error) {
	const query = `
		INSERT INTO invoice_counters (user_id, year, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, year)
		DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		RETURNING last_seq`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, userID, year).Scan(&seq); err != nil {
		return "", fmt.Errorf("billing: next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%04d", year, seq), nil
}

func (r *Repository) loadLines(ctx context.Context, inv *Invoice) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, description, quantity, rate, amount
		FROM invoice_items WHERE invoice_id=$1 ORDER BY position`, inv.ID)
	if err != nil {
		return fmt.Errorf("billing: load items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.Rate, &item.Amount); err != nil {
			return err
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	msRows, err := r.pool.Query(ctx, `
		SELECT id, name, amount
		FROM invoice_milestones WHERE invoice_id=$1 ORDER BY position`, inv.ID)
	if err != nil {
		return fmt.Errorf("billing: load milestones: %w", err)
	}
	defer msRows.Close()
	for msRows.Next() {
		var m Milestone
		if err := msRows.Scan(&m.ID, &m.Name, &m.Amount); err != nil {
			return err
		}
		inv.Milestones = append(inv.Milestones, m)
	}
	return msRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var taxName, paymentMethod pgtype.Text
	var tdsChoice pgtype.Bool
	var paymentDate, nextReminder, lastReminder pgtype.Timestamptz

	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.Number, &inv.IssueDate, &inv.DueDate, &inv.Currency,
		&inv.Engagement, &taxName, &inv.TaxPercentage, &inv.GSTRegistered, &inv.GSTRate,
		&tdsChoice, &inv.TDSRate,
		&inv.Subtotal, &inv.Tax, &inv.GSTAmount, &inv.TDSAmount, &inv.Total, &inv.AmountPayable,
		&inv.Status, &paymentDate, &paymentMethod, &inv.PartiallyPaidAmount,
		&nextReminder, &lastReminder, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("billing: scan invoice: %w", err)
	}

	inv.TaxName = taxName.String
	inv.PaymentMethod = paymentMethod.String
	if tdsChoice.Valid {
		inv.TDSApplicable = &tdsChoice.Bool
	}
	if paymentDate.Valid {
		inv.PaymentDate = &paymentDate.Time
	}
	if nextReminder.Valid {
		inv.NextReminderAt = &nextReminder.Time
	}
	if lastReminder.Valid {
		inv.LastReminderAt = &lastReminder.Time
	}
	return &inv, nil
}

func nullString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
