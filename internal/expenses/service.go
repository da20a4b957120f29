package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billfold/billfold/internal/money"
)

// ErrNotFound indicates the expense does not exist.
var ErrNotFound = errors.New("expenses: expense not found")

// ErrInvalidInput indicates an expense failing validation.
var ErrInvalidInput = errors.New("expenses: invalid input")

// RepositoryPort defines data access methods for expenses.
type RepositoryPort interface {
	Create(ctx context.Context, expense *Expense) error
	Get(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filters ListFilters) ([]Expense, int, error)
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, userID int64) ([]Category, error)
	CreateCategory(ctx context.Context, category *Category) error
}

// Service handles expense tracking logic.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, expense *Expense) error {
	if err := s.validate(expense); err != nil {
		return err
	}
	if expense.SpentOn.IsZero() {
		expense.SpentOn = s.now()
	}
	return s.repo.Create(ctx, expense)
}

func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid expense id", ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Expense, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, expense *Expense) error {
	if expense.ID <= 0 {
		return fmt.Errorf("%w: invalid expense id", ErrInvalidInput)
	}
	if err := s.validate(expense); err != nil {
		return err
	}
	return s.repo.Update(ctx, expense)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid expense id", ErrInvalidInput)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

func (s *Service) CreateCategory(ctx context.Context, category *Category) error {
	if category.UserID <= 0 || category.Name == "" {
		return fmt.Errorf("%w: user_id and name are required", ErrInvalidInput)
	}
	return s.repo.CreateCategory(ctx, category)
}

func (s *Service) validate(expense *Expense) error {
	if expense.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !money.IsFinite(expense.Amount) || expense.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if expense.Currency == "" {
		expense.Currency = money.INR
	}
	if expense.Currency != money.INR && expense.Currency != money.USD {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, expense.Currency)
	}
	expense.Amount = money.Round2(expense.Amount)
	return nil
}
