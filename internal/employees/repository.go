package employees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for employees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, user_id, name, email, designation, monthly_salary, currency, joined_on, active, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, employee *Employee) error {
	const query = `
		INSERT INTO employees (user_id, name, email, designation, monthly_salary, currency, joined_on, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		employee.UserID, employee.Name, employee.Email, employee.Designation,
		employee.MonthlySalary, employee.Currency, nullDate(employee.JoinedOn),
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
	if err != nil {
		return fmt.Errorf("employees: insert employee: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	employee, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("employees: get employee: %w", err)
	}
	return employee, nil
}

func (r *Repository) List(ctx context.Context, userID int64) ([]Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("employees: list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("employees: scan employee: %w", err)
		}
		out = append(out, *employee)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, employee *Employee) error {
	const query = `
		UPDATE employees
		SET name=$2, email=$3, designation=$4, monthly_salary=$5, currency=$6, joined_on=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		employee.ID, employee.Name, employee.Email, employee.Designation,
		employee.MonthlySalary, employee.Currency, nullDate(employee.JoinedOn),
	).Scan(&employee.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("employees: update employee: %w", err)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("employees: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	var joined pgtype.Date
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Email, &e.Designation,
		&e.MonthlySalary, &e.Currency, &joined, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if joined.Valid {
		t := joined.Time
		e.JoinedOn = &t
	}
	return &e, nil
}

func nullDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
