package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/backoffice/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationMail mails a committed inbox notification to its user.
	TaskNotificationMail = "notification:mail"
	// TaskPurgeExpired drops expired sessions and idempotency keys.
	TaskPurgeExpired = "maintenance:purge"
)

// NotificationMailPayload is the body of a TaskNotificationMail task.
type NotificationMailPayload struct {
	NotificationID int64       `json:"notification_id"`
	UserID         int64       `json:"user_id"`
	Type           notify.Type `json:"type"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Link           string      `json:"link,omitempty"`
}

// NewNotificationMailTask builds the task for n.
func NewNotificationMailTask(n notify.Notification) (*asynq.Task, error) {
	if n.ID == 0 || n.UserID == 0 {
		return nil, fmt.Errorf("jobs: notification %d has no recipient", n.ID)
	}
	data, err := json.Marshal(NotificationMailPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationMail, data, asynq.MaxRetry(5), asynq.Queue(QueueDefault)), nil
}

// NewPurgeTask builds the periodic maintenance task.
func NewPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskPurgeExpired, nil, asynq.MaxRetry(3))
}
