package employees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const employeeColumns = `id, school_id, staff_no, first_name, last_name,
	designation, department, user_id, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for employees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.SchoolID, &e.StaffNo, &e.FirstName, &e.LastName,
		&e.Designation, &e.Department, &e.UserID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// List returns non-deleted employees of a school, paged.
func (r *Repository) List(ctx context.Context, schoolID uuid.UUID, paging shared.Paging) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE school_id = $1 AND deleted_at IS NULL
		ORDER BY staff_no LIMIT $2 OFFSET $3`,
		schoolID, paging.PageSize, paging.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a non-deleted employee.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	return e, err
}

// Insert stores a new employee.
func (r *Repository) Insert(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO employees
		(id, school_id, staff_no, first_name, last_name, designation,
		 department, user_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
		RETURNING `+employeeColumns,
		e.ID, e.SchoolID, e.StaffNo, e.FirstName, e.LastName, e.Designation,
		e.Department, e.UserID, e.IsActive)
	inserted, err := scanEmployee(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Employee{}, shared.ErrDuplicate
		}
		return Employee{}, err
	}
	return inserted, nil
}

// Update mutates mutable fields.
func (r *Repository) Update(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `UPDATE employees SET
		first_name = $2, last_name = $3, designation = $4, department = $5,
		is_active = $6, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+employeeColumns,
		e.ID, e.FirstName, e.LastName, e.Designation, e.Department, e.IsActive)
	updated, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	return updated, err
}

// SetUser links or clears the login account reference.
func (r *Repository) SetUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET user_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete flags the employee deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
