package service

import (
	"context"
	"fmt"
	"time"

	"careTracker/internal/models/task"

	"github.com/google/uuid"
)

type NotificationService struct {
	notifications NotificationRepository
	now           func() time.Time
}

func NewNotificationService(notifications NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications, now: time.Now}
}

func (s *NotificationService) ListNotifications(ctx context.Context, actorID uuid.UUID) ([]*task.Notification, error) {
	list, err := s.notifications.ListNotifications(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("получение уведомлений: %w", err)
	}
	return list, nil
}

// MarkRead отмечает прочитанным уведомление получателя; чужое уведомление не находится
func (s *NotificationService) MarkRead(ctx context.Context, actorID, notificationID uuid.UUID) error {
	if err := s.notifications.MarkNotificationRead(ctx, notificationID, actorID, s.now()); err != nil {
		return fromRepo(err, ResourceNotification, notificationID.String(), "отметка уведомления")
	}
	return nil
}
