package recurring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold/billfold/internal/billing"
)

// Repository provides PostgreSQL backed persistence for templates. The
// invoice snapshot (items/milestones and tax settings) is stored as a
// JSONB column: it is frozen data copied verbatim, never queried by
// field.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type snapshot struct {
	Engagement    string              `json:"engagement_type"`
	Items         json.RawMessage     `json:"items,omitempty"`
	Milestones    json.RawMessage     `json:"milestones,omitempty"`
	TaxName       string              `json:"tax_name,omitempty"`
	TaxPercentage float64             `json:"tax_percentage"`
	GSTRegistered bool                `json:"is_gst_registered"`
	GSTRate       float64             `json:"gst_rate"`
	TDSApplicable *bool               `json:"is_tds_applicable,omitempty"`
	TDSRate       float64             `json:"tds_rate"`
}

func snapshotFrom(tpl *Template) (snapshot, error) {
	items, err := json.Marshal(tpl.Items)
	if err != nil {
		return snapshot{}, err
	}
	milestones, err := json.Marshal(tpl.Milestones)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		Engagement:    string(tpl.Engagement),
		Items:         items,
		Milestones:    milestones,
		TaxName:       tpl.TaxName,
		TaxPercentage: tpl.TaxPercentage,
		GSTRegistered: tpl.GSTRegistered,
		GSTRate:       tpl.GSTRate,
		TDSApplicable: tpl.TDSApplicable,
		TDSRate:       tpl.TDSRate,
	}, nil
}

// CreateTemplate inserts a template with its frozen snapshot.
func (r *Repository) CreateTemplate(ctx context.Context, tpl *Template) error {
	snap, err := snapshotFrom(tpl)
	if err != nil {
		return fmt.Errorf("recurring: marshal snapshot: %w", err)
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("recurring: marshal snapshot: %w", err)
	}

	var endDate pgtype.Timestamptz
	if tpl.EndDate != nil {
		endDate = pgtype.Timestamptz{Time: *tpl.EndDate, Valid: true}
	}

	const query = `
		INSERT INTO recurring_templates (
			user_id, client_id, title, frequency, start_date, end_date,
			next_issue_date, status, auto_send, currency, snapshot,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
		RETURNING id, created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query,
		tpl.UserID, tpl.ClientID, tpl.Title, tpl.Frequency, tpl.StartDate, endDate,
		tpl.NextIssueDate, tpl.Status, tpl.AutoSend, tpl.Currency, snapJSON,
	).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return fmt.Errorf("recurring: insert template: %w", err)
	}
	return nil
}

const templateColumns = `
	id, user_id, client_id, title, frequency, start_date, end_date,
	next_issue_date, last_generated, status, auto_send, currency,
	snapshot, deactivation_reason, created_at, updated_at`

// GetTemplate retrieves a template by id.
func (r *Repository) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+templateColumns+` FROM recurring_templates WHERE id = $1`, id)
	return scanTemplate(row)
}

// ListTemplates retrieves a user's templates, newest first.
func (r *Repository) ListTemplates(ctx context.Context, userID int64) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+templateColumns+`
		FROM recurring_templates
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("recurring: list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListDue retrieves active templates whose next issue date has arrived.
func (r *Repository) ListDue(ctx context.Context, asOf time.Time) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+templateColumns+`
		FROM recurring_templates
		WHERE status = $1 AND next_issue_date <= $2
		ORDER BY next_issue_date`, StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("recurring: list due: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// SetStatus flips a template's status and records why.
func (r *Repository) SetStatus(ctx context.Context, id int64, status TemplateStatus, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_templates
		SET status=$2, deactivation_reason=$3, updated_at=NOW()
		WHERE id=$1`, id, status, reason)
	if err != nil {
		return fmt.Errorf("recurring: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Advance moves next_issue_date one step, guarded by the previous
// value so overlapping runs cannot double-generate.
func (r *Repository) Advance(ctx context.Context, id int64, prevNext, newNext, generatedOn time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_templates
		SET next_issue_date=$2, last_generated=$3, updated_at=NOW()
		WHERE id=$1 AND next_issue_date=$4`,
		id, newNext, generatedOn, prevNext)
	if err != nil {
		return false, fmt.Errorf("recurring: advance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectTemplates(rows pgx.Rows) ([]Template, error) {
	var out []Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tpl)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var tpl Template
	var endDate, lastGenerated pgtype.Timestamptz
	var reason pgtype.Text
	var snapJSON []byte

	err := row.Scan(
		&tpl.ID, &tpl.UserID, &tpl.ClientID, &tpl.Title, &tpl.Frequency, &tpl.StartDate, &endDate,
		&tpl.NextIssueDate, &lastGenerated, &tpl.Status, &tpl.AutoSend, &tpl.Currency,
		&snapJSON, &reason, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("recurring: scan template: %w", err)
	}

	if endDate.Valid {
		tpl.EndDate = &endDate.Time
	}
	if lastGenerated.Valid {
		tpl.LastGenerated = &lastGenerated.Time
	}
	tpl.DeactivationReason = reason.String

	var snap snapshot
	if err := json.Unmarshal(snapJSON, &snap); err != nil {
		return nil, fmt.Errorf("recurring: unmarshal snapshot: %w", err)
	}
	tpl.Engagement = billing.EngagementType(snap.Engagement)
	tpl.TaxName = snap.TaxName
	tpl.TaxPercentage = snap.TaxPercentage
	tpl.GSTRegistered = snap.GSTRegistered
	tpl.GSTRate = snap.GSTRate
	tpl.TDSApplicable = snap.TDSApplicable
	tpl.TDSRate = snap.TDSRate
	if len(snap.Items) > 0 {
		if err := json.Unmarshal(snap.Items, &tpl.Items); err != nil {
			return nil, fmt.Errorf("recurring: unmarshal items: %w", err)
		}
	}
	if len(snap.Milestones) > 0 {
		if err := json.Unmarshal(snap.Milestones, &tpl.Milestones); err != nil {
			return nil, fmt.Errorf("recurring: unmarshal milestones: %w", err)
		}
	}
	return &tpl, nil
}
