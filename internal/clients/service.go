package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/billfold/billfold/internal/money"
)

// ErrNotFound indicates the client does not exist.
var ErrNotFound = errors.New("clients: client not found")

// ErrInvalidInput indicates a client failing validation.
var ErrInvalidInput = errors.New("clients: invalid input")

// RepositoryPort defines data access methods for clients.
type RepositoryPort interface {
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, filters ListFilters) ([]Client, int, error)
	Update(ctx context.Context, client *Client) error
	SetArchived(ctx context.Context, id int64, archived bool) error
}

// Service handles client directory logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, client *Client) error {
	if err := s.validate(client); err != nil {
		return err
	}
	return s.repo.Create(ctx, client)
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid client id", ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, client *Client) error {
	if client.ID <= 0 {
		return fmt.Errorf("%w: invalid client id", ErrInvalidInput)
	}
	if err := s.validate(client); err != nil {
		return err
	}
	return s.repo.Update(ctx, client)
}

// Archive hides the client from listings without breaking invoice
// references.
func (s *Service) Archive(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid client id", ErrInvalidInput)
	}
	return s.repo.SetArchived(ctx, id, true)
}

func (s *Service) Restore(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid client id", ErrInvalidInput)
	}
	return s.repo.SetArchived(ctx, id, false)
}

// PaymentTermDays reports the client's negotiated payment term. Zero
// means no term is configured.
func (s *Service) PaymentTermDays(ctx context.Context, id int64) (int, error) {
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return client.PaymentTermDays, nil
}

func (s *Service) validate(client *Client) error {
	if client.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if client.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if client.Currency == "" {
		client.Currency = money.INR
	}
	if client.Currency != money.INR && client.Currency != money.USD {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, client.Currency)
	}
	if client.PaymentTermDays < 0 || client.PaymentTermDays > 365 {
		return fmt.Errorf("%w: payment_term_days out of range 0..365", ErrInvalidInput)
	}
	return nil
}
