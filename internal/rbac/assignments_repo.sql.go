package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const assignmentColumns = `id, user_id, role_id, assigned_at, is_active, expires_at`

// AssignmentRepository provides PostgreSQL backed persistence for user-role
// assignments.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository constructs a repository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.UserID, &a.RoleID, &a.AssignedAt, &a.IsActive, &a.ExpiresAt)
	return a, err
}

// EffectiveRoleIDs returns role ids conferred by assignments that are
// active, unexpired and not deleted, where the role itself is also active.
// All four conditions are evaluated in one query: deactivating a role
// administratively revokes access for all holders without touching
// assignment rows.
func (r *AssignmentRepository) EffectiveRoleIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT ro.id
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND ur.deleted_at IS NULL
		  AND (ur.expires_at IS NULL OR ur.expires_at > now())
		  AND ro.is_active
		  AND ro.deleted_at IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByUser returns all non-deleted assignments for a user, effective or
// not.
func (r *AssignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM user_roles
		WHERE user_id = $1 AND deleted_at IS NULL ORDER BY assigned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert creates the (user, role) assignment or extends the existing row.
// A fresh expiry overwrites the stored one; a nil expiry leaves it alone.
// The natural-key conflict clause is what guarantees a single row per pair.
func (r *AssignmentRepository) Upsert(ctx context.Context, userID, roleID uuid.UUID, assignedAt time.Time, expiresAt *time.Time) (Assignment, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO user_roles
		(id, user_id, role_id, assigned_at, is_active, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,true,$5,now(),now())
		ON CONFLICT (user_id, role_id) DO UPDATE SET
			is_active = true,
			expires_at = COALESCE(EXCLUDED.expires_at, user_roles.expires_at),
			deleted_at = NULL,
			updated_at = now()
		RETURNING `+assignmentColumns,
		uuid.New(), userID, roleID, assignedAt, expiresAt)
	a, err := scanAssignment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Assignment{}, shared.ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

// Deactivate sets is_active=false on the matching row; false when the user
// never held the role, which callers treat as already-revoked.
func (r *AssignmentRepository) Deactivate(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE user_roles SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL`, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
