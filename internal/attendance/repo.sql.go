package attendance

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

const punchColumns = `id, school_id, user_id, device_id, template_hash,
	direction, punched_at, created_at`

// Repository provides PostgreSQL backed persistence for attendance punches.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPunch(row pgx.Row) (Punch, error) {
	var p Punch
	err := row.Scan(&p.ID, &p.SchoolID, &p.UserID, &p.DeviceID, &p.TemplateHash,
		&p.Direction, &p.PunchedAt, &p.CreatedAt)
	return p, err
}

// Insert stores a punch event.
func (r *Repository) Insert(ctx context.Context, p Punch) (Punch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO attendance_punches
		(id, school_id, user_id, device_id, template_hash, direction, punched_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		RETURNING `+punchColumns,
		p.ID, p.SchoolID, p.UserID, p.DeviceID, p.TemplateHash, p.Direction, p.PunchedAt)
	inserted, err := scanPunch(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Punch{}, shared.ErrNotFound
		}
		return Punch{}, err
	}
	return inserted, nil
}

// ListByUserDay returns a user's punches within [dayStart, dayStart+24h),
// oldest first.
func (r *Repository) ListByUserDay(ctx context.Context, userID uuid.UUID, dayStart time.Time) ([]Punch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+punchColumns+` FROM attendance_punches
		WHERE user_id = $1 AND punched_at >= $2 AND punched_at < $3
		ORDER BY punched_at`,
		userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDevice returns recent punches reported by one device, newest first.
func (r *Repository) ListByDevice(ctx context.Context, schoolID uuid.UUID, deviceID string, paging shared.Paging) ([]Punch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+punchColumns+` FROM attendance_punches
		WHERE school_id = $1 AND device_id = $2
		ORDER BY punched_at DESC LIMIT $3 OFFSET $4`,
		schoolID, deviceID, paging.PageSize, paging.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
