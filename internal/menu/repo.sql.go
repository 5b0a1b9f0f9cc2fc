package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const nodeColumns = `id, name, display_name, description, icon, route, component,
	sort_order, is_active, is_visible, kind, parent_id, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for menu nodes.
// Every query inspects deleted_at explicitly: deleted rows stay queryable
// history, they are never an implicit filter.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanNode(row pgx.Row) (Node, error) {
	var n Node
	err := row.Scan(&n.ID, &n.Name, &n.DisplayName, &n.Description, &n.Icon, &n.Route,
		&n.Component, &n.SortOrder, &n.IsActive, &n.IsVisible, &n.Kind, &n.ParentID,
		&n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func collectNodes(rows pgx.Rows) ([]Node, error) {
	defer rows.Close()
	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListAll returns every non-deleted node.
func (r *Repository) ListAll(ctx context.Context) ([]Node, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+nodeColumns+` FROM menus
		WHERE deleted_at IS NULL ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// ListActive returns every non-deleted, active node.
func (r *Repository) ListActive(ctx context.Context) ([]Node, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+nodeColumns+` FROM menus
		WHERE deleted_at IS NULL AND is_active ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// ListByParent returns non-deleted children of parentID; nil returns roots.
func (r *Repository) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]Node, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if parentID == nil {
		rows, err = r.pool.Query(ctx, `SELECT `+nodeColumns+` FROM menus
			WHERE deleted_at IS NULL AND parent_id IS NULL ORDER BY sort_order, name`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+nodeColumns+` FROM menus
			WHERE deleted_at IS NULL AND parent_id = $1 ORDER BY sort_order, name`, *parentID)
	}
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// GetByID fetches a non-deleted node by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Node, error) {
	n, err := scanNode(r.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM menus
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, shared.ErrNotFound
	}
	return n, err
}

// GetByName fetches a non-deleted node by its stable name key.
func (r *Repository) GetByName(ctx context.Context, name string) (Node, error) {
	n, err := scanNode(r.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM menus
		WHERE name = $1 AND deleted_at IS NULL`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, shared.ErrNotFound
	}
	return n, err
}

// Insert stores a new node.
func (r *Repository) Insert(ctx context.Context, n Node) (Node, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO menus
		(id, name, display_name, description, icon, route, component, sort_order,
		 is_active, is_visible, kind, parent_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		RETURNING `+nodeColumns,
		n.ID, n.Name, n.DisplayName, n.Description, n.Icon, n.Route, n.Component,
		n.SortOrder, n.IsActive, n.IsVisible, n.Kind, n.ParentID)
	inserted, err := scanNode(row)
	if err != nil {
		return Node{}, mapPgError(err)
	}
	return inserted, nil
}

// UpdateMeta mutates display and visibility fields only. Identity and the
// parent chain are touched exclusively through SetParent.
func (r *Repository) UpdateMeta(ctx context.Context, n Node) (Node, error) {
	row := r.pool.QueryRow(ctx, `UPDATE menus SET
		display_name = $2, description = $3, icon = $4, route = $5, component = $6,
		sort_order = $7, is_active = $8, is_visible = $9, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+nodeColumns,
		n.ID, n.DisplayName, n.Description, n.Icon, n.Route, n.Component,
		n.SortOrder, n.IsActive, n.IsVisible)
	updated, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, shared.ErrNotFound
	}
	return updated, err
}

// SetParent re-homes a node. Cycle checks happen in the service before this
// is called.
func (r *Repository) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE menus SET parent_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, parentID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete flags the node deleted. Children and grants are left untouched;
// they simply become unreachable through normal traversal.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE menus SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return shared.ErrNotFound
		}
	}
	return err
}
