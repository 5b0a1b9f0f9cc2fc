package employees

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/users"
)

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Employee, error)
	GetByID(ctx context.Context, id uuid.UUID) (Employee, error)
	Insert(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	SetUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// AccountDirectory looks up login accounts for link checks.
type AccountDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Service handles employee business logic.
type Service struct {
	repo     RepositoryPort
	accounts AccountDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, accounts AccountDirectory) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// CreateInput carries fields for a new employee.
type CreateInput struct {
	SchoolID    uuid.UUID
	StaffNo     string
	FirstName   string
	LastName    string
	Designation string
	Department  string
}

// List returns employees of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Employee, error) {
	return s.repo.List(ctx, schoolID, paging)
}

// Get fetches an employee by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Employee, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a new staff member.
func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	staffNo := strings.TrimSpace(in.StaffNo)
	if staffNo == "" {
		return Employee{}, fmt.Errorf("%w: staff number required", shared.ErrValidation)
	}
	return s.repo.Insert(ctx, Employee{
		ID:          uuid.New(),
		SchoolID:    in.SchoolID,
		StaffNo:     staffNo,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Designation: strings.TrimSpace(in.Designation),
		Department:  strings.TrimSpace(in.Department),
		IsActive:    true,
	})
}

// Update mutates mutable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, firstName, lastName, designation, department string, isActive bool) (Employee, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	current.FirstName = strings.TrimSpace(firstName)
	current.LastName = strings.TrimSpace(lastName)
	current.Designation = strings.TrimSpace(designation)
	current.Department = strings.TrimSpace(department)
	current.IsActive = isActive
	return s.repo.Update(ctx, current)
}

// LinkUser attaches a login account to the employee record. Only accounts of
// the employee category may be linked.
func (s *Service) LinkUser(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if account.Category != users.CategoryEmployee {
		return fmt.Errorf("%w: user %s is not an employee account", shared.ErrInvalidOperation, userID)
	}
	return s.repo.SetUser(ctx, id, &userID)
}

// UnlinkUser detaches the login account, if any.
func (s *Service) UnlinkUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetUser(ctx, id, nil)
}

// Delete soft-deletes the employee record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
