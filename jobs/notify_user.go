package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// NewNotifyUserHandler processes TaskTypeNotifyUser tasks. Delivery is
// currently a structured log entry; SMTP integration comes with the
// notification gateway.
func NewNotifyUserHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyUserPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if logger != nil {
			logger.Info("notify user",
				slog.String("user_id", payload.UserID.String()),
				slog.String("subject", payload.Subject))
		}
		return nil
	}
}
