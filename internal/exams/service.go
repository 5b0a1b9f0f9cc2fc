package exams

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/students"
)

// RepositoryPort defines data access methods for exam records.
type RepositoryPort interface {
	ListSchedules(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Schedule, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (Schedule, error)
	InsertSchedule(ctx context.Context, s Schedule) (Schedule, error)
	SoftDeleteSchedule(ctx context.Context, id uuid.UUID) error
	UpsertResult(ctx context.Context, res Result) (Result, error)
	ListResultsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]Result, error)
	ListResultsByStudent(ctx context.Context, studentID uuid.UUID) ([]Result, error)
}

// StudentDirectory resolves result subjects.
type StudentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (students.Student, error)
}

// Service handles exam scheduling and marks entry.
type Service struct {
	repo     RepositoryPort
	students StudentDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, studentDir StudentDirectory) *Service {
	return &Service{repo: repo, students: studentDir}
}

// ListSchedules returns exam schedules of a school.
func (s *Service) ListSchedules(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Schedule, error) {
	return s.repo.ListSchedules(ctx, schoolID, paging)
}

// GetSchedule fetches a schedule by id.
func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

// CreateSchedule plans a new exam sitting.
func (s *Service) CreateSchedule(ctx context.Context, in Schedule) (Schedule, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Subject) == "" {
		return Schedule{}, fmt.Errorf("%w: name and subject required", shared.ErrValidation)
	}
	if in.MaxMarks <= 0 {
		return Schedule{}, fmt.Errorf("%w: max marks must be positive", shared.ErrValidation)
	}
	in.ID = uuid.New()
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	in.ClassName = strings.TrimSpace(in.ClassName)
	return s.repo.InsertSchedule(ctx, in)
}

// DeleteSchedule soft-deletes the schedule.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteSchedule(ctx, id)
}

// RecordResult stores or overwrites a student's marks for a sitting. Marks
// above the schedule's maximum are rejected.
func (s *Service) RecordResult(ctx context.Context, scheduleID, studentID uuid.UUID, marks int, grade, remarks string) (Result, error) {
	schedule, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.students.Get(ctx, studentID); err != nil {
		return Result{}, err
	}
	if marks < 0 || marks > schedule.MaxMarks {
		return Result{}, fmt.Errorf("%w: marks must be between 0 and %d", shared.ErrValidation, schedule.MaxMarks)
	}
	return s.repo.UpsertResult(ctx, Result{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		StudentID:  studentID,
		Marks:      marks,
		Grade:      strings.ToUpper(strings.TrimSpace(grade)),
		Remarks:    strings.TrimSpace(remarks),
	})
}

// ScheduleResults returns all marks for one sitting.
func (s *Service) ScheduleResults(ctx context.Context, scheduleID uuid.UUID) ([]Result, error) {
	if _, err := s.repo.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListResultsBySchedule(ctx, scheduleID)
}

// StudentResults returns one student's marks across sittings.
func (s *Service) StudentResults(ctx context.Context, studentID uuid.UUID) ([]Result, error) {
	if _, err := s.students.Get(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListResultsByStudent(ctx, studentID)
}
