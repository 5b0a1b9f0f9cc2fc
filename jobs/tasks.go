package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyUser delivers a notification to one user.
	TaskTypeNotifyUser = "notify:user"
	// TaskTypeAssignmentSweep deactivates role assignments past their expiry.
	TaskTypeAssignmentSweep = "rbac:assignment_sweep"
)

// NotifyUserPayload describes the notification to deliver.
type NotifyUserPayload struct {
	UserID  uuid.UUID `json:"userId"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
}

// NewNotifyUserTask constructs an Asynq task.
func NewNotifyUserTask(userID uuid.UUID, subject, body string) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyUserPayload{UserID: userID, Subject: subject, Body: body})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyUser, data,
		asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewAssignmentSweepTask constructs the periodic expiry sweep task. It
// carries no payload; the handler works off the database clock.
func NewAssignmentSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAssignmentSweep, nil,
		asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
}
