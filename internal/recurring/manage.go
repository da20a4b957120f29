package recurring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/money"
)

// ErrInvalidTemplate rejects malformed template input.
var ErrInvalidTemplate = errors.New("recurring: invalid template")

// Service handles template management outside the scheduler: the only
// user-driven mutations are create, activate and deactivate.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateTemplate validates and stores a new template. The first issue
// date is the start date.
func (s *Service) CreateTemplate(ctx context.Context, tpl *Template) error {
	if err := s.validate(tpl); err != nil {
		return err
	}
	tpl.Status = StatusActive
	tpl.NextIssueDate = dateOnly(tpl.StartDate)
	tpl.Items = billing.NormalizeItems(tpl.Items)
	return s.repo.CreateTemplate(ctx, tpl)
}

// GetTemplate retrieves a template by id.
func (s *Service) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id required", ErrInvalidTemplate)
	}
	return s.repo.GetTemplate(ctx, id)
}

// ListTemplates retrieves a user's templates.
func (s *Service) ListTemplates(ctx context.Context, userID int64) ([]Template, error) {
	return s.repo.ListTemplates(ctx, userID)
}

// Activate re-enables an inactive template.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusActive, "")
}

// Deactivate stops a template from generating further invoices.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusInactive, "deactivated by user")
}

func (s *Service) validate(tpl *Template) error {
	if tpl == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	if tpl.UserID <= 0 || tpl.ClientID <= 0 {
		return fmt.Errorf("%w: user and client required", ErrInvalidTemplate)
	}
	if strings.TrimSpace(tpl.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTemplate)
	}
	if !tpl.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTemplate, tpl.Frequency)
	}
	if tpl.StartDate.IsZero() {
		return fmt.Errorf("%w: start date required", ErrInvalidTemplate)
	}
	if tpl.EndDate != nil && tpl.EndDate.Before(tpl.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidTemplate)
	}
	if tpl.Currency != money.INR && tpl.Currency != money.USD {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidTemplate, tpl.Currency)
	}
	switch tpl.Engagement {
	case billing.EngagementService, billing.EngagementProject, billing.EngagementRetainer, billing.EngagementMilestone:
	default:
		return fmt.Errorf("%w: unknown engagement type %q", ErrInvalidTemplate, tpl.Engagement)
	}
	return nil
}
