package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]User, error)
	Insert(ctx context.Context, u User) (User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	SchoolID uuid.UUID
	Email    string
	FullName string
	Category Category
	Password string
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether the user id is known.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// List returns users of a school.
func (s *Service) List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]User, error) {
	return s.repo.List(ctx, schoolID, paging)
}

// Create registers a new account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if len(in.Password) < 8 {
		return User{}, fmt.Errorf("%w: password too short", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Insert(ctx, User{
		ID:           uuid.New(),
		SchoolID:     in.SchoolID,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Category:     in.Category,
		PasswordHash: string(hash),
		IsActive:     true,
	})
}

// Authenticate verifies credentials and returns the account. Inactive
// accounts and bad passwords both report invalid credentials; callers cannot
// tell the cases apart.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !u.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return u, nil
}

// SetActiveStatus activates or deactivates an account.
func (s *Service) SetActiveStatus(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
