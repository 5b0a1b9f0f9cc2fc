package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

// RepositoryPort defines data access methods for punches.
type RepositoryPort interface {
	Insert(ctx context.Context, p Punch) (Punch, error)
	ListByUserDay(ctx context.Context, userID uuid.UUID, dayStart time.Time) ([]Punch, error)
	ListByDevice(ctx context.Context, schoolID uuid.UUID, deviceID string, paging shared.Paging) ([]Punch, error)
}

// UserDirectory answers existence checks for punch subjects.
type UserDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service handles attendance capture and reporting.
type Service struct {
	repo  RepositoryPort
	users UserDirectory
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, users UserDirectory) *Service {
	return &Service{repo: repo, users: users, now: time.Now}
}

// CaptureInput carries one device punch report.
type CaptureInput struct {
	SchoolID     uuid.UUID
	UserID       uuid.UUID
	DeviceID     string
	TemplateHash string
	Direction    Direction
	PunchedAt    time.Time
}

// Capture validates and records a biometric punch. A zero PunchedAt is
// replaced with the capture time.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (Punch, error) {
	if strings.TrimSpace(in.DeviceID) == "" {
		return Punch{}, fmt.Errorf("%w: device id required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.TemplateHash) == "" {
		return Punch{}, fmt.Errorf("%w: template hash required", shared.ErrValidation)
	}
	if !in.Direction.Valid() {
		return Punch{}, fmt.Errorf("%w: direction must be in or out", shared.ErrValidation)
	}
	ok, err := s.users.Exists(ctx, in.UserID)
	if err != nil {
		return Punch{}, err
	}
	if !ok {
		return Punch{}, shared.ErrNotFound
	}
	punchedAt := in.PunchedAt
	if punchedAt.IsZero() {
		punchedAt = s.now()
	}
	return s.repo.Insert(ctx, Punch{
		ID:           uuid.New(),
		SchoolID:     in.SchoolID,
		UserID:       in.UserID,
		DeviceID:     strings.TrimSpace(in.DeviceID),
		TemplateHash: strings.TrimSpace(in.TemplateHash),
		Direction:    in.Direction,
		PunchedAt:    punchedAt.UTC(),
	})
}

// DaySummary condenses a user's punches for the day containing at. The first
// "in" and last "out" bound the attendance window; a day with any punch at
// all counts as present.
func (s *Service) DaySummary(ctx context.Context, userID uuid.UUID, at time.Time) (DaySummary, error) {
	day := at.UTC().Truncate(24 * time.Hour)
	punches, err := s.repo.ListByUserDay(ctx, userID, day)
	if err != nil {
		return DaySummary{}, err
	}
	summary := DaySummary{UserID: userID, Day: day, Punches: len(punches), Present: len(punches) > 0}
	for i := range punches {
		p := punches[i]
		switch p.Direction {
		case DirectionIn:
			if summary.FirstIn == nil {
				t := p.PunchedAt
				summary.FirstIn = &t
			}
		case DirectionOut:
			t := p.PunchedAt
			summary.LastOut = &t
		}
	}
	return summary, nil
}

// DevicePunches lists recent punches reported by one device.
func (s *Service) DevicePunches(ctx context.Context, schoolID uuid.UUID, deviceID string, paging shared.Paging) ([]Punch, error) {
	return s.repo.ListByDevice(ctx, schoolID, deviceID, paging)
}
