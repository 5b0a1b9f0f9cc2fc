package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const roleColumns = `id, school_id, name, display_name, description,
	is_system_role, is_active, level, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.SchoolID, &r.Name, &r.DisplayName, &r.Description,
		&r.IsSystemRole, &r.IsActive, &r.Level, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var out []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all non-deleted roles for a school ordered by level then name.
func (r *Repository) List(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE school_id = $1 AND deleted_at IS NULL ORDER BY level, name`, schoolID)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// ListActive returns active, non-deleted roles for a school.
func (r *Repository) ListActive(ctx context.Context, schoolID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE school_id = $1 AND is_active AND deleted_at IS NULL ORDER BY level, name`, schoolID)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// GetByID fetches a non-deleted role.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// Insert stores a new role.
func (r *Repository) Insert(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO roles
		(id, school_id, name, display_name, description, is_system_role, is_active,
		 level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		RETURNING `+roleColumns,
		role.ID, role.SchoolID, role.Name, role.DisplayName, role.Description,
		role.IsSystemRole, role.IsActive, role.Level)
	inserted, err := scanRole(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	return inserted, nil
}

// Update mutates display fields and level.
func (r *Repository) Update(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `UPDATE roles SET
		display_name = $2, description = $3, level = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+roleColumns,
		role.ID, role.DisplayName, role.Description, role.Level)
	updated, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return updated, err
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_active = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete flags the role deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
