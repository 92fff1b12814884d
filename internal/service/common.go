package service

import (
	"context"
	"errors"
	"fmt"

	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"
	rep "careTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loadActor загружает пользователя из токена; удалённая учётная запись даёт 401
func loadActor(ctx context.Context, users UserRepository, actorID uuid.UUID) (*user.User, error) {
	actor, err := users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewUnauthorized("Пользователь не найден").Wrap(err)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return actor, nil
}

func loadPatient(ctx context.Context, users UserRepository, patientID uuid.UUID) (*user.User, error) {
	patient, err := users.GetUserByID(ctx, patientID)
	if err != nil {
		return nil, fromRepo(err, ResourcePatient, patientID.String(), "получение пациента")
	}
	if !patient.Is(user.RolePatient) {
		return nil, NewNotFound(ResourcePatient, patientID.String())
	}
	return patient, nil
}

// publish отправляет уведомление во внешний канал; ошибка только логируется
func publish(ctx context.Context, publisher Publisher, n *task.Notification) {
	if publisher == nil || n == nil {
		return
	}
	if err := publisher.Publish(ctx, n); err != nil {
		logger.Warn("Service: Не удалось опубликовать уведомление",
			zap.String("notification_id", n.ID.String()),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}
