package clients

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, user_id, name, email, phone, address, gstin, currency, payment_term_days, archived, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, client *Client) error {
	const query = `
		INSERT INTO clients (user_id, name, email, phone, address, gstin, currency, payment_term_days, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		client.UserID, client.Name, client.Email, client.Phone,
		client.Address, client.GSTIN, client.Currency, client.PaymentTermDays,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("clients: insert client: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.GSTIN,
		&c.Currency, &c.PaymentTermDays, &c.Archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get client: %w", err)
	}
	return &c, nil
}

// List filters by search text and archive state with offset pagination.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Client, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{filters.UserID}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR email ILIKE $` + n + `)`
	}
	if filters.Archived != nil {
		args = append(args, *filters.Archived)
		where += ` AND archived = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("clients: count clients: %w", err)
	}

	query := `SELECT ` + clientColumns + ` FROM clients` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filters.Limit, offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("clients: list clients: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.GSTIN, &c.Currency, &c.PaymentTermDays, &c.Archived, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("clients: scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, client *Client) error {
	const query = `
		UPDATE clients
		SET name=$2, email=$3, phone=$4, address=$5, gstin=$6, currency=$7, payment_term_days=$8, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		client.ID, client.Name, client.Email, client.Phone,
		client.Address, client.GSTIN, client.Currency, client.PaymentTermDays,
	).Scan(&client.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clients: update client: %w", err)
	}
	return nil
}

func (r *Repository) SetArchived(ctx context.Context, id int64, archived bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET archived=$2, updated_at=NOW() WHERE id=$1`, id, archived)
	if err != nil {
		return fmt.Errorf("clients: set archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
