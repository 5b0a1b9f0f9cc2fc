package students

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/users"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (Student, error)
	Insert(ctx context.Context, s Student) (Student, error)
	Update(ctx context.Context, s Student) (Student, error)
	SetUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// AccountDirectory looks up login accounts for link checks.
type AccountDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Service handles student business logic.
type Service struct {
	repo     RepositoryPort
	accounts AccountDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, accounts AccountDirectory) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// CreateInput carries fields for a new student.
type CreateInput struct {
	SchoolID    uuid.UUID
	AdmissionNo string
	FirstName   string
	LastName    string
	ClassName   string
	GuardianTel string
}

// List returns students of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Student, error) {
	return s.repo.List(ctx, schoolID, paging)
}

// Get fetches a student by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Student, error) {
	return s.repo.GetByID(ctx, id)
}

// Create enrolls a new student.
func (s *Service) Create(ctx context.Context, in CreateInput) (Student, error) {
	admission := strings.TrimSpace(in.AdmissionNo)
	if admission == "" {
		return Student{}, fmt.Errorf("%w: admission number required", shared.ErrValidation)
	}
	return s.repo.Insert(ctx, Student{
		ID:          uuid.New(),
		SchoolID:    in.SchoolID,
		AdmissionNo: admission,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		ClassName:   strings.TrimSpace(in.ClassName),
		GuardianTel: strings.TrimSpace(in.GuardianTel),
		IsActive:    true,
	})
}

// Update mutates mutable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, firstName, lastName, className, guardianTel string, isActive bool) (Student, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	current.FirstName = strings.TrimSpace(firstName)
	current.LastName = strings.TrimSpace(lastName)
	current.ClassName = strings.TrimSpace(className)
	current.GuardianTel = strings.TrimSpace(guardianTel)
	current.IsActive = isActive
	return s.repo.Update(ctx, current)
}

// LinkUser attaches a login account to the student record. Only accounts of
// the student category may be linked.
func (s *Service) LinkUser(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if account.Category != users.CategoryStudent {
		return fmt.Errorf("%w: user %s is not a student account", shared.ErrInvalidOperation, userID)
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

// Delete soft-deletes the student record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
