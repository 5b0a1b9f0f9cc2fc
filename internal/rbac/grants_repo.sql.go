package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/platform/db"
	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const grantColumns = `role_id, menu_id, can_view, can_add, can_edit, can_delete,
	can_export, can_print, can_approve, can_reject, created_at, updated_at`

// GrantRepository provides PostgreSQL backed persistence for role-menu
// grants, the authorization ground truth.
type GrantRepository struct {
	pool *pgxpool.Pool
}

// NewGrantRepository constructs a repository.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	p := &g.Permissions
	err := row.Scan(&g.RoleID, &g.MenuID, &p.CanView, &p.CanAdd, &p.CanEdit, &p.CanDelete,
		&p.CanExport, &p.CanPrint, &p.CanApprove, &p.CanReject, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func collectGrants(rows pgx.Rows) ([]Grant, error) {
	defer rows.Close()
	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByRoleAndMenu returns the non-deleted grant for the pair, reporting
// absence without error.
func (r *GrantRepository) GetByRoleAndMenu(ctx context.Context, roleID, menuID uuid.UUID) (Grant, bool, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM role_menu_grants
		WHERE role_id = $1 AND menu_id = $2 AND deleted_at IS NULL`, roleID, menuID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Grant{}, false, nil
	}
	if err != nil {
		return Grant{}, false, err
	}
	return g, true, nil
}

// ListByRole returns all non-deleted grants held by a role.
func (r *GrantRepository) ListByRole(ctx context.Context, roleID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+grantColumns+` FROM role_menu_grants
		WHERE role_id = $1 AND deleted_at IS NULL`, roleID)
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

// ListByMenu returns all non-deleted grants on a menu.
func (r *GrantRepository) ListByMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+grantColumns+` FROM role_menu_grants
		WHERE menu_id = $1 AND deleted_at IS NULL`, menuID)
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

// UpsertBatch writes one PermissionSet per menu id for a role, all-or-nothing
// in one transaction. Each upsert overwrites all eight fields atomically and
// revives a previously soft-deleted row.
func (r *GrantRepository) UpsertBatch(ctx context.Context, roleID uuid.UUID, pairs []MenuPermission) error {
	if len(pairs) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, pair := range pairs {
			p := pair.Permissions
			_, err := tx.Exec(ctx, `INSERT INTO role_menu_grants
				(role_id, menu_id, can_view, can_add, can_edit, can_delete,
				 can_export, can_print, can_approve, can_reject, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
				ON CONFLICT (role_id, menu_id) DO UPDATE SET
					can_view = EXCLUDED.can_view,
					can_add = EXCLUDED.can_add,
					can_edit = EXCLUDED.can_edit,
					can_delete = EXCLUDED.can_delete,
					can_export = EXCLUDED.can_export,
					can_print = EXCLUDED.can_print,
					can_approve = EXCLUDED.can_approve,
					can_reject = EXCLUDED.can_reject,
					deleted_at = NULL,
					updated_at = now()`,
				roleID, pair.MenuID, p.CanView, p.CanAdd, p.CanEdit, p.CanDelete,
				p.CanExport, p.CanPrint, p.CanApprove, p.CanReject)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					return shared.ErrNotFound
				}
				return err
			}
		}
		return nil
	})
}

// SoftDelete flags the grant for one pair deleted; false when no row matched.
func (r *GrantRepository) SoftDelete(ctx context.Context, roleID, menuID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE role_menu_grants SET deleted_at = now()
		WHERE role_id = $1 AND menu_id = $2 AND deleted_at IS NULL`, roleID, menuID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SoftDeleteByRole flags every grant held by a role deleted.
func (r *GrantRepository) SoftDeleteByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE role_menu_grants SET deleted_at = now()
		WHERE role_id = $1 AND deleted_at IS NULL`, roleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SoftDeleteByMenu flags every grant on a menu deleted.
func (r *GrantRepository) SoftDeleteByMenu(ctx context.Context, menuID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE role_menu_grants SET deleted_at = now()
		WHERE menu_id = $1 AND deleted_at IS NULL`, menuID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
