// Package employees keeps the small-business staff register used for
// salary expense reporting.
package employees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billfold/billfold/internal/money"
)

var (
	ErrNotFound     = errors.New("employees: employee not found")
	ErrInvalidInput = errors.New("employees: invalid input")
)

// Employee is one staff member on the payroll.
type Employee struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Designation   string     `json:"designation,omitempty"`
	MonthlySalary float64    `json:"monthly_salary"`
	Currency      string     `json:"currency"`
	JoinedOn      *time.Time `json:"joined_on,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	Create(ctx context.Context, employee *Employee) error
	Get(ctx context.Context, id int64) (*Employee, error)
	List(ctx context.Context, userID int64) ([]Employee, error)
	Update(ctx context.Context, employee *Employee) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles the staff register.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, employee *Employee) error {
	if err := validate(employee); err != nil {
		return err
	}
	employee.Active = true
	return s.repo.Create(ctx, employee)
}

func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid employee id", ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, userID int64) ([]Employee, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Update(ctx context.Context, employee *Employee) error {
	if employee.ID <= 0 {
		return fmt.Errorf("%w: invalid employee id", ErrInvalidInput)
	}
	if err := validate(employee); err != nil {
		return err
	}
	return s.repo.Update(ctx, employee)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid employee id", ErrInvalidInput)
	}
	return s.repo.SetActive(ctx, id, false)
}

func validate(employee *Employee) error {
	if employee.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if employee.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !money.IsFinite(employee.MonthlySalary) || employee.MonthlySalary < 0 {
		return fmt.Errorf("%w: monthly_salary must be non-negative", ErrInvalidInput)
	}
	if employee.Currency == "" {
		employee.Currency = money.INR
	}
	if employee.Currency != money.INR && employee.Currency != money.USD {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, employee.Currency)
	}
	employee.MonthlySalary = money.Round2(employee.MonthlySalary)
	return nil
}
