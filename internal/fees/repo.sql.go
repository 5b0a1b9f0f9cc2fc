package fees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sis/meridian-sis/internal/shared"
)

const structureColumns = `id, school_id, name, description, amount_minor,
	currency, is_active, created_at, updated_at`

const paymentColumns = `id, school_id, structure_id, student_id, amount_minor,
	currency, reference, paid_at, created_at`

// Repository provides PostgreSQL backed persistence for fee structures and
// payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStructure(row pgx.Row) (Structure, error) {
	var s Structure
	err := row.Scan(&s.ID, &s.SchoolID, &s.Name, &s.Description, &s.AmountMinor,
		&s.Currency, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.SchoolID, &p.StructureID, &p.StudentID, &p.AmountMinor,
		&p.Currency, &p.Reference, &p.PaidAt, &p.CreatedAt)
	return p, err
}

// ListStructures returns non-deleted structures of a school.
func (r *Repository) ListStructures(ctx context.Context, schoolID uuid.UUID) ([]Structure, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+structureColumns+` FROM fee_structures
		WHERE school_id = $1 AND deleted_at IS NULL
		ORDER BY name`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Structure
	for rows.Next() {
		s, err := scanStructure(rows)
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

// GetStructure fetches a non-deleted structure.
func (r *Repository) GetStructure(ctx context.Context, id uuid.UUID) (Structure, error) {
	s, err := scanStructure(r.pool.QueryRow(ctx, `SELECT `+structureColumns+` FROM fee_structures
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Structure{}, shared.ErrNotFound
	}
	return s, err
}

// InsertStructure stores a new structure.
func (r *Repository) InsertStructure(ctx context.Context, s Structure) (Structure, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fee_structures
		(id, school_id, name, description, amount_minor, currency, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
		RETURNING `+structureColumns,
		s.ID, s.SchoolID, s.Name, s.Description, s.AmountMinor, s.Currency, s.IsActive)
	inserted, err := scanStructure(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Structure{}, shared.ErrDuplicate
		}
		return Structure{}, err
	}
	return inserted, nil
}

// UpdateStructure mutates mutable fields.
func (r *Repository) UpdateStructure(ctx context.Context, s Structure) (Structure, error) {
	row := r.pool.QueryRow(ctx, `UPDATE fee_structures SET
		name = $2, description = $3, amount_minor = $4, currency = $5,
		is_active = $6, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+structureColumns,
		s.ID, s.Name, s.Description, s.AmountMinor, s.Currency, s.IsActive)
	updated, err := scanStructure(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Structure{}, shared.ErrNotFound
	}
	return updated, err
}

// SoftDeleteStructure flags the structure deleted.
func (r *Repository) SoftDeleteStructure(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE fee_structures SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InsertPayment stores a payment record.
func (r *Repository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fee_payments
		(id, school_id, structure_id, student_id, amount_minor, currency, reference, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		RETURNING `+paymentColumns,
		p.ID, p.SchoolID, p.StructureID, p.StudentID, p.AmountMinor, p.Currency, p.Reference, p.PaidAt)
	inserted, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Payment{}, shared.ErrDuplicate
			case "23503":
				return Payment{}, shared.ErrNotFound
			}
		}
		return Payment{}, err
	}
	return inserted, nil
}

// ListPaymentsByStudent returns a student's payments, newest first.
func (r *Repository) ListPaymentsByStudent(ctx context.Context, studentID uuid.UUID, paging shared.Paging) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM fee_payments
		WHERE student_id = $1
		ORDER BY paid_at DESC LIMIT $2 OFFSET $3`,
		studentID, paging.PageSize, paging.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
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
