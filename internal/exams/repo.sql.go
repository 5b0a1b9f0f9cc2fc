package exams

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const scheduleColumns = `id, school_id, name, subject, class_name, max_marks,
	held_at, created_at, updated_at`

const resultColumns = `id, schedule_id, student_id, marks, grade, remarks,
	created_at, updated_at`

// Repository provides PostgreSQL backed persistence for exam schedules and
// results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSchedule(row pgx.Row) (Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.SchoolID, &s.Name, &s.Subject, &s.ClassName, &s.MaxMarks,
		&s.HeldAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanResult(row pgx.Row) (Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.ScheduleID, &res.StudentID, &res.Marks, &res.Grade,
		&res.Remarks, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}

// ListSchedules returns non-deleted schedules of a school, upcoming first.
func (r *Repository) ListSchedules(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM exam_schedules
		WHERE school_id = $1 AND deleted_at IS NULL
		ORDER BY held_at DESC LIMIT $2 OFFSET $3`,
		schoolID, paging.PageSize, paging.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSchedule fetches a non-deleted schedule.
func (r *Repository) GetSchedule(ctx context.Context, id uuid.UUID) (Schedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM exam_schedules
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, shared.ErrNotFound
	}
	return s, err
}

// InsertSchedule stores a new schedule.
func (r *Repository) InsertSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO exam_schedules
		(id, school_id, name, subject, class_name, max_marks, held_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
		RETURNING `+scheduleColumns,
		s.ID, s.SchoolID, s.Name, s.Subject, s.ClassName, s.MaxMarks, s.HeldAt)
	inserted, err := scanSchedule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Schedule{}, shared.ErrDuplicate
		}
		return Schedule{}, err
	}
	return inserted, nil
}

// SoftDeleteSchedule flags the schedule deleted.
func (r *Repository) SoftDeleteSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE exam_schedules SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpsertResult stores or overwrites one student's marks for a schedule.
func (r *Repository) UpsertResult(ctx context.Context, res Result) (Result, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO exam_results
		(id, schedule_id, student_id, marks, grade, remarks, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
		ON CONFLICT (schedule_id, student_id) DO UPDATE SET
			marks = EXCLUDED.marks,
			grade = EXCLUDED.grade,
			remarks = EXCLUDED.remarks,
			updated_at = now()
		RETURNING `+resultColumns,
		res.ID, res.ScheduleID, res.StudentID, res.Marks, res.Grade, res.Remarks)
	upserted, err := scanResult(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Result{}, shared.ErrNotFound
		}
		return Result{}, err
	}
	return upserted, nil
}

// ListResultsBySchedule returns all results of one sitting.
func (r *Repository) ListResultsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]Result, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM exam_results
		WHERE schedule_id = $1 ORDER BY marks DESC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResultsByStudent returns one student's results across sittings.
func (r *Repository) ListResultsByStudent(ctx context.Context, studentID uuid.UUID) ([]Result, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM exam_results
		WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
