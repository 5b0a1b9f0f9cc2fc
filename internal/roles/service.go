package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, schoolID uuid.UUID) ([]Role, error)
	ListActive(ctx context.Context, schoolID uuid.UUID) ([]Role, error)
	GetByID(ctx context.Context, id uuid.UUID) (Role, error)
	Insert(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for a new role.
type CreateInput struct {
	SchoolID    uuid.UUID
	Name        string
	DisplayName string
	Description string
	Level       int
}

// List returns all roles for a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	return s.repo.List(ctx, schoolID)
}

// ActiveRoles returns only active roles for a school.
func (s *Service) ActiveRoles(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	return s.repo.ListActive(ctx, schoolID)
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a new non-system role.
func (s *Service) Create(ctx context.Context, in CreateInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = name
	}
	return s.repo.Insert(ctx, Role{
		ID:          uuid.New(),
		SchoolID:    in.SchoolID,
		Name:        name,
		DisplayName: display,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		Level:       in.Level,
	})
}

// Update mutates display fields and level.
func (s *Service) Update(ctx context.Context, id uuid.UUID, displayName, description string, level int) (Role, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Role{}, err
	}
	display := strings.TrimSpace(displayName)
	if display == "" {
		display = current.DisplayName
	}
	current.DisplayName = display
	current.Description = strings.TrimSpace(description)
	current.Level = level
	return s.repo.Update(ctx, current)
}

// SetActiveStatus activates or deactivates a role. Deactivating a system
// role is forbidden: deactivation would instantly revoke access for every
// holder, and system roles must always keep at least their own admins in.
func (s *Service) SetActiveStatus(ctx context.Context, id uuid.UUID, active bool) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole && !active {
		return fmt.Errorf("%w: system role %q cannot be deactivated", shared.ErrInvalidOperation, role.Name)
	}
	return s.repo.SetActive(ctx, id, active)
}

// Delete soft-deletes a role. System roles cannot be deleted; this is the
// same hard failure as deactivation so the two paths stay consistent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return fmt.Errorf("%w: system role %q cannot be deleted", shared.ErrInvalidOperation, role.Name)
	}
	return s.repo.SoftDelete(ctx, id)
}
