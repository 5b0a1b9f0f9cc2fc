package fees

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/students"
	"github.com/meridian-sis/meridian-sis/jobs"
)

// RepositoryPort defines data access methods for fee records.
type RepositoryPort interface {
	ListStructures(ctx context.Context, schoolID uuid.UUID) ([]Structure, error)
	GetStructure(ctx context.Context, id uuid.UUID) (Structure, error)
	InsertStructure(ctx context.Context, s Structure) (Structure, error)
	UpdateStructure(ctx context.Context, s Structure) (Structure, error)
	SoftDeleteStructure(ctx context.Context, id uuid.UUID) error
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	ListPaymentsByStudent(ctx context.Context, studentID uuid.UUID, paging shared.Paging) ([]Payment, error)
}

// StudentDirectory resolves payment subjects.
type StudentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (students.Student, error)
}

// TaskQueue enqueues background tasks.
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service handles fee structures and payment recording.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	students StudentDirectory
	queue    TaskQueue
	now      func() time.Time
}

// NewService builds a Service instance. queue may be nil; receipt
// notifications are then skipped.
func NewService(logger *slog.Logger, repo RepositoryPort, studentDir StudentDirectory, queue TaskQueue) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, students: studentDir, queue: queue, now: time.Now}
}

// StructureInput carries fields for a fee structure.
type StructureInput struct {
	SchoolID    uuid.UUID
	Name        string
	Description string
	AmountMinor int64
	Currency    string
}

// ListStructures returns fee structures of a school.
func (s *Service) ListStructures(ctx context.Context, schoolID uuid.UUID) ([]Structure, error) {
	return s.repo.ListStructures(ctx, schoolID)
}

// GetStructure fetches a structure by id.
func (s *Service) GetStructure(ctx context.Context, id uuid.UUID) (Structure, error) {
	return s.repo.GetStructure(ctx, id)
}

// CreateStructure registers a fee schedule.
func (s *Service) CreateStructure(ctx context.Context, in StructureInput) (Structure, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Structure{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if in.AmountMinor <= 0 {
		return Structure{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(currency) != 3 {
		return Structure{}, fmt.Errorf("%w: currency must be a 3-letter code", shared.ErrValidation)
	}
	return s.repo.InsertStructure(ctx, Structure{
		ID:          uuid.New(),
		SchoolID:    in.SchoolID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		AmountMinor: in.AmountMinor,
		Currency:    currency,
		IsActive:    true,
	})
}

// UpdateStructure mutates mutable fields.
func (s *Service) UpdateStructure(ctx context.Context, id uuid.UUID, in StructureInput, isActive bool) (Structure, error) {
	current, err := s.repo.GetStructure(ctx, id)
	if err != nil {
		return Structure{}, err
	}
	if in.AmountMinor <= 0 {
		return Structure{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	current.Name = strings.TrimSpace(in.Name)
	current.Description = strings.TrimSpace(in.Description)
	current.AmountMinor = in.AmountMinor
	current.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	current.IsActive = isActive
	return s.repo.UpdateStructure(ctx, current)
}

// DeleteStructure soft-deletes the structure.
func (s *Service) DeleteStructure(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteStructure(ctx, id)
}

// PaymentInput carries one received payment.
type PaymentInput struct {
	SchoolID    uuid.UUID
	StructureID uuid.UUID
	StudentID   uuid.UUID
	AmountMinor int64
	Reference   string
	PaidAt      time.Time
}

// RecordPayment validates and stores a payment, then enqueues a receipt
// notification to the student's login account when one is linked. Enqueue
// failures are logged, never surfaced; the payment record is the source of
// truth.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	structure, err := s.repo.GetStructure(ctx, in.StructureID)
	if err != nil {
		return Payment{}, err
	}
	if !structure.IsActive {
		return Payment{}, fmt.Errorf("%w: fee structure %q is inactive", shared.ErrInvalidOperation, structure.Name)
	}
	student, err := s.students.Get(ctx, in.StudentID)
	if err != nil {
		return Payment{}, err
	}
	if in.AmountMinor <= 0 {
		return Payment{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	payment, err := s.repo.InsertPayment(ctx, Payment{
		ID:          uuid.New(),
		SchoolID:    in.SchoolID,
		StructureID: structure.ID,
		StudentID:   student.ID,
		AmountMinor: in.AmountMinor,
		Currency:    structure.Currency,
		Reference:   strings.TrimSpace(in.Reference),
		PaidAt:      paidAt.UTC(),
	})
	if err != nil {
		return Payment{}, err
	}
	s.enqueueReceipt(ctx, structure, student, payment)
	return payment, nil
}

func (s *Service) enqueueReceipt(ctx context.Context, structure Structure, student students.Student, payment Payment) {
	if s.queue == nil || student.UserID == nil {
		return
	}
	subject := fmt.Sprintf("Payment received: %s", structure.Name)
	body := fmt.Sprintf("Payment of %d %s recorded for %s (ref %s).",
		payment.AmountMinor, payment.Currency, structure.Name, payment.Reference)
	task, err := jobs.NewNotifyUserTask(*student.UserID, subject, body)
	if err != nil {
		s.logger.Error("build receipt task", slog.Any("error", err))
		return
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		s.logger.Error("enqueue receipt task",
			slog.String("payment_id", payment.ID.String()), slog.Any("error", err))
	}
}

// StudentPayments lists a student's payments.
func (s *Service) StudentPayments(ctx context.Context, studentID uuid.UUID, paging shared.Paging) ([]Payment, error) {
	return s.repo.ListPaymentsByStudent(ctx, studentID, paging)
}
