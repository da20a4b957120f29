package expenses

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for expenses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, expense *Expense) error {
	const query = `
		INSERT INTO expenses (user_id, category_id, description, amount, currency, spent_on, receipt_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		expense.UserID, nullID(expense.CategoryID), expense.Description,
		expense.Amount, expense.Currency, expense.SpentOn, expense.ReceiptURL,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("expenses: insert expense: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Expense, error) {
	const query = `
		SELECT e.id, e.user_id, e.category_id, COALESCE(c.name, '` + UncategorizedLabel + `'),
		       e.description, e.amount, e.currency, e.spent_on, e.receipt_url, e.created_at, e.updated_at
		FROM expenses e
		LEFT JOIN expense_categories c ON c.id = e.category_id
		WHERE e.id = $1 AND e.deleted_at IS NULL`

	var e Expense
	var categoryID pgtype.Int8
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.UserID, &categoryID, &e.Category, &e.Description,
		&e.Amount, &e.Currency, &e.SpentOn, &e.ReceiptURL, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("expenses: get expense: %w", err)
	}
	if categoryID.Valid {
		e.CategoryID = &categoryID.Int64
	}
	return &e, nil
}

// List joins category names; expenses keep working when their category
// row is gone.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Expense, int, error) {
	where := ` WHERE e.user_id = $1 AND e.deleted_at IS NULL`
	args := []any{filters.UserID}

	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += ` AND e.category_id = $` + strconv.Itoa(len(args))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		where += ` AND e.spent_on >= $` + strconv.Itoa(len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		where += ` AND e.spent_on <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("expenses: count expenses: %w", err)
	}

	query := `
		SELECT e.id, e.user_id, e.category_id, COALESCE(c.name, '` + UncategorizedLabel + `'),
		       e.description, e.amount, e.currency, e.spent_on, e.receipt_url, e.created_at, e.updated_at
		FROM expenses e
		LEFT JOIN expense_categories c ON c.id = e.category_id` + where + `
		ORDER BY e.spent_on DESC, e.id DESC`
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
		return nil, 0, fmt.Errorf("expenses: list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var e Expense
		var categoryID pgtype.Int8
		if err := rows.Scan(&e.ID, &e.UserID, &categoryID, &e.Category, &e.Description,
			&e.Amount, &e.Currency, &e.SpentOn, &e.ReceiptURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("expenses: scan expense: %w", err)
		}
		if categoryID.Valid {
			e.CategoryID = &categoryID.Int64
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, expense *Expense) error {
	const query = `
		UPDATE expenses
		SET category_id=$2, description=$3, amount=$4, currency=$5, spent_on=$6, receipt_url=$7, updated_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		expense.ID, nullID(expense.CategoryID), expense.Description,
		expense.Amount, expense.Currency, expense.SpentOn, expense.ReceiptURL,
	).Scan(&expense.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("expenses: update expense: %w", err)
	}
	return nil
}

// Delete is logical; the row stays for historical reports.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("expenses: delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name FROM expense_categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("expenses: list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("expenses: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCategory(ctx context.Context, category *Category) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expense_categories (user_id, name) VALUES ($1, $2) RETURNING id`,
		category.UserID, category.Name,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("expenses: insert category: %w", err)
	}
	return nil
}

func nullID(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}
