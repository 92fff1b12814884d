package postgres

import (
	"context"
	"fmt"
	"time"

	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

func (s *Storage) CreateNotification(ctx context.Context, n *task.Notification) error {
	if err := insertNotification(ctx, s.pool, n); err != nil {
		logger.Error("Repository: Не удалось сохранить уведомление", err)
		return fmt.Errorf("сохранение уведомления: %w", mapError(err))
	}
	return nil
}

func (s *Storage) ListNotifications(ctx context.Context, recipient uuid.UUID) ([]*task.Notification, error) {
	start := time.Now()
	defer logSlow("list_notifications", start)

	rows, err := s.pool.Query(ctx, `SELECT id, task_id, recipient, message, notification_type, created_at, read_at
				FROM task_notifications
				WHERE recipient = $1
				ORDER BY created_at DESC`, recipient)
	if err != nil {
		logger.Error("Repository: Не удалось получить уведомления", err)
		return nil, fmt.Errorf("получение уведомлений: %w", err)
	}
	defer rows.Close()

	list := []*task.Notification{}
	for rows.Next() {
		n := &task.Notification{}
		if err := rows.Scan(&n.ID, &n.TaskID, &n.Recipient, &n.Message, &n.Type, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("сканирование уведомления: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return list, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id, recipient uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE task_notifications
				SET read_at = COALESCE(read_at, $3)
				WHERE id = $1 AND recipient = $2`, id, recipient, at)
	if err != nil {
		logger.Error("Repository: Не удалось отметить уведомление", err)
		return fmt.Errorf("отметка уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
