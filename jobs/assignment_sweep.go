package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewAssignmentSweepHandler processes TaskTypeAssignmentSweep tasks. Expired
// assignments stay authoritative through query-time filters; the sweep only
// flips is_active so reporting and admin screens reflect reality.
func NewAssignmentSweepHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tag, err := pool.Exec(ctx, `UPDATE user_roles SET is_active = false, updated_at = now()
			WHERE is_active = true AND deleted_at IS NULL
			AND expires_at IS NOT NULL AND expires_at <= now()`)
		if err != nil {
			return err
		}
		if logger != nil && tag.RowsAffected() > 0 {
			logger.Info("assignment sweep", slog.Int64("deactivated", tag.RowsAffected()))
		}
		return nil
	}
}
