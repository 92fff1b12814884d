package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const NotificationAssigned NotificationType = "assigned"
const NotificationReminder NotificationType = "reminder"
const NotificationCompleted NotificationType = "completed"

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	TaskID    uuid.UUID        `json:"task_id" db:"task_id"`
	Recipient uuid.UUID        `json:"recipient" db:"recipient"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"notification_type" db:"notification_type"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
}

func newNotification(t *Task, recipient uuid.UUID, nType NotificationType, message string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		TaskID:    t.ID,
		Recipient: recipient,
		Message:   message,
		Type:      nType,
		CreatedAt: time.Now(),
	}
}

func AssignedNotification(t *Task) *Notification {
	return newNotification(t, t.AssignedTo, NotificationAssigned, fmt.Sprintf("New task assigned: %s", t.Title))
}

func CompletedNotification(t *Task) *Notification {
	return newNotification(t, t.AssignedBy, NotificationCompleted, fmt.Sprintf("Task completed: %s", t.Title))
}

func ReminderNotification(t *Task) *Notification {
	return newNotification(t, t.AssignedTo, NotificationReminder, fmt.Sprintf("Task overdue: %s", t.Title))
}
