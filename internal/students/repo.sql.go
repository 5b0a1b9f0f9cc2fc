package students

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const studentColumns = `id, school_id, admission_no, first_name, last_name,
	class_name, guardian_tel, user_id, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for students.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.SchoolID, &s.AdmissionNo, &s.FirstName, &s.LastName,
		&s.ClassName, &s.GuardianTel, &s.UserID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List returns non-deleted students of a school, paged.
func (r *Repository) List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students
		WHERE school_id = $1 AND deleted_at IS NULL
		ORDER BY admission_no LIMIT $2 OFFSET $3`,
		schoolID, paging.PageSize, paging.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
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

// GetByID fetches a non-deleted student.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, shared.ErrNotFound
	}
	return s, err
}

// Insert stores a new student.
func (r *Repository) Insert(ctx context.Context, s Student) (Student, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO students
		(id, school_id, admission_no, first_name, last_name, class_name,
		 guardian_tel, user_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
		RETURNING `+studentColumns,
		s.ID, s.SchoolID, s.AdmissionNo, s.FirstName, s.LastName, s.ClassName,
		s.GuardianTel, s.UserID, s.IsActive)
	inserted, err := scanStudent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Student{}, shared.ErrDuplicate
		}
		return Student{}, err
	}
	return inserted, nil
}

// Update mutates mutable fields.
func (r *Repository) Update(ctx context.Context, s Student) (Student, error) {
	row := r.pool.QueryRow(ctx, `UPDATE students SET
		first_name = $2, last_name = $3, class_name = $4, guardian_tel = $5,
		is_active = $6, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+studentColumns,
		s.ID, s.FirstName, s.LastName, s.ClassName, s.GuardianTel, s.IsActive)
	updated, err := scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, shared.ErrNotFound
	}
	return updated, err
}

// SetUser links or clears the login account reference.
func (r *Repository) SetUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET user_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete flags the student deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
