package fees

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/students"
	"github.com/meridian-sis/meridian-sis/jobs"
)

type stubRepo struct {
	structures map[uuid.UUID]Structure
	payments   []Payment
}

func newStubRepo(structures ...Structure) *stubRepo {
	r := &stubRepo{structures: make(map[uuid.UUID]Structure)}
	for _, s := range structures {
		r.structures[s.ID] = s
	}
	return r
}

func (r *stubRepo) ListStructures(ctx context.Context, schoolID uuid.UUID) ([]Structure, error) {
	var out []Structure
	for _, s := range r.structures {
		if s.SchoolID == schoolID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubRepo) GetStructure(ctx context.Context, id uuid.UUID) (Structure, error) {
	s, ok := r.structures[id]
	if !ok {
		return Structure{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *stubRepo) InsertStructure(ctx context.Context, s Structure) (Structure, error) {
	r.structures[s.ID] = s
	return s, nil
}

func (r *stubRepo) UpdateStructure(ctx context.Context, s Structure) (Structure, error) {
	if _, ok := r.structures[s.ID]; !ok {
		return Structure{}, shared.ErrNotFound
	}
	r.structures[s.ID] = s
	return s, nil
}

func (r *stubRepo) SoftDeleteStructure(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.structures[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.structures, id)
	return nil
}

func (r *stubRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	r.payments = append(r.payments, p)
	return p, nil
}

func (r *stubRepo) ListPaymentsByStudent(ctx context.Context, studentID uuid.UUID, paging shared.Paging) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubStudents struct {
	byID map[uuid.UUID]students.Student
}

func (s *stubStudents) Get(ctx context.Context, id uuid.UUID) (students.Student, error) {
	st, ok := s.byID[id]
	if !ok {
		return students.Student{}, shared.ErrNotFound
	}
	return st, nil
}

type captureQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *captureQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func tuitionStructure(schoolID uuid.UUID) Structure {
	return Structure{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		Name:        "Term 1 Tuition",
		AmountMinor: 250000,
		Currency:    "USD",
		IsActive:    true,
	}
}

func TestRecordPaymentEnqueuesReceipt(t *testing.T) {
	schoolID := uuid.New()
	structure := tuitionStructure(schoolID)
	accountID := uuid.New()
	pupil := students.Student{ID: uuid.New(), SchoolID: schoolID, UserID: &accountID}

	repo := newStubRepo(structure)
	queue := &captureQueue{}
	svc := NewService(slog.Default(), repo, &stubStudents{byID: map[uuid.UUID]students.Student{pupil.ID: pupil}}, queue)

	payment, err := svc.RecordPayment(context.Background(), PaymentInput{
		SchoolID:    schoolID,
		StructureID: structure.ID,
		StudentID:   pupil.ID,
		AmountMinor: 250000,
		Reference:   "RCPT-0001",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", payment.Currency, "currency must come from the structure")
	assert.False(t, payment.PaidAt.IsZero())

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, jobs.TaskTypeNotifyUser, queue.tasks[0].Type())

	var payload jobs.NotifyUserPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, accountID, payload.UserID)
	assert.Contains(t, payload.Subject, structure.Name)
}

func TestRecordPaymentInactiveStructure(t *testing.T) {
	schoolID := uuid.New()
	structure := tuitionStructure(schoolID)
	structure.IsActive = false
	pupil := students.Student{ID: uuid.New(), SchoolID: schoolID}

	queue := &captureQueue{}
	svc := NewService(slog.Default(), newStubRepo(structure), &stubStudents{byID: map[uuid.UUID]students.Student{pupil.ID: pupil}}, queue)

	_, err := svc.RecordPayment(context.Background(), PaymentInput{
		SchoolID: schoolID, StructureID: structure.ID, StudentID: pupil.ID, AmountMinor: 100,
	})
	require.ErrorIs(t, err, shared.ErrInvalidOperation)
	assert.Empty(t, queue.tasks)
}

func TestRecordPaymentUnlinkedStudentSkipsReceipt(t *testing.T) {
	schoolID := uuid.New()
	structure := tuitionStructure(schoolID)
	pupil := students.Student{ID: uuid.New(), SchoolID: schoolID} // no login account

	repo := newStubRepo(structure)
	queue := &captureQueue{}
	svc := NewService(slog.Default(), repo, &stubStudents{byID: map[uuid.UUID]students.Student{pupil.ID: pupil}}, queue)

	_, err := svc.RecordPayment(context.Background(), PaymentInput{
		SchoolID: schoolID, StructureID: structure.ID, StudentID: pupil.ID, AmountMinor: 100,
	})
	require.NoError(t, err)
	assert.Len(t, repo.payments, 1)
	assert.Empty(t, queue.tasks)
}

func TestRecordPaymentEnqueueFailureIsNotFatal(t *testing.T) {
	schoolID := uuid.New()
	structure := tuitionStructure(schoolID)
	accountID := uuid.New()
	pupil := students.Student{ID: uuid.New(), SchoolID: schoolID, UserID: &accountID}

	repo := newStubRepo(structure)
	queue := &captureQueue{err: errors.New("broker down")}
	svc := NewService(slog.Default(), repo, &stubStudents{byID: map[uuid.UUID]students.Student{pupil.ID: pupil}}, queue)

	_, err := svc.RecordPayment(context.Background(), PaymentInput{
		SchoolID: schoolID, StructureID: structure.ID, StudentID: pupil.ID, AmountMinor: 100,
	})
	require.NoError(t, err, "payment record is the source of truth")
	assert.Len(t, repo.payments, 1)
}

func TestCreateStructureValidation(t *testing.T) {
	svc := NewService(slog.Default(), newStubRepo(), &stubStudents{}, nil)
	ctx := context.Background()
	schoolID := uuid.New()

	_, err := svc.CreateStructure(ctx, StructureInput{SchoolID: schoolID, Name: " ", AmountMinor: 100, Currency: "USD"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateStructure(ctx, StructureInput{SchoolID: schoolID, Name: "Bus Fee", AmountMinor: 0, Currency: "USD"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateStructure(ctx, StructureInput{SchoolID: schoolID, Name: "Bus Fee", AmountMinor: 100, Currency: "DOLLARS"})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.CreateStructure(ctx, StructureInput{SchoolID: schoolID, Name: "Bus Fee", AmountMinor: 100, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Currency)
	assert.True(t, created.IsActive)
}
