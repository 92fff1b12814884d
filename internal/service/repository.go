package service

import (
	"context"
	"time"

	"careTracker/internal/models/checklist"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error

	// CreateTask сохраняет задачу вместе с уведомлением о назначении
	CreateTask(context.Context, *task.Task, *task.Notification) error
	UpdateTask(context.Context, *task.Task) error
	GetTaskByID(context.Context, uuid.UUID) (*task.Task, error)
	ListTasks(context.Context, task.Filter) ([]*task.Task, error)
	CountTasks(context.Context, task.Filter) (int, error)
	DeleteTask(context.Context, uuid.UUID) error
	DeleteTasks(context.Context, task.Filter) (int, error)

	// ListOverdueTasks - невыполненные задачи со сроком раньше now без отправленного напоминания
	ListOverdueTasks(ctx context.Context, now time.Time, limit int) ([]*task.Task, error)
	MarkReminded(context.Context, *task.Task, *task.Notification) error

	GetResponse(context.Context, uuid.UUID) (*task.Response, error)
	GetOrCreateResponse(context.Context, uuid.UUID) (*task.Response, error)
	// CompleteTask атомарно обновляет задачу, сохраняет ответ и уведомление
	CompleteTask(context.Context, *task.Task, *task.Response, *task.Notification) error
	ResetResponses(context.Context, task.Filter) (int, error)
}

type NotificationRepository interface {
	CreateNotification(context.Context, *task.Notification) error
	ListNotifications(ctx context.Context, recipient uuid.UUID) ([]*task.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipient uuid.UUID, at time.Time) error
}

type TemplateRepository interface {
	CreateTemplate(context.Context, *task.QuestionnaireTemplate) error
	GetTemplateByID(context.Context, uuid.UUID) (*task.QuestionnaireTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]*task.QuestionnaireTemplate, error)
}

type ChecklistRepository interface {
	// CreateSubmission возвращает repository.ErrDuplicate, если за этот день чек-лист уже есть
	CreateSubmission(context.Context, *checklist.Submission) error
	ExistsSubmission(ctx context.Context, patientID uuid.UUID, day time.Time) (bool, error)
	ListSubmissions(ctx context.Context, patientID uuid.UUID) ([]*checklist.Submission, error)
	DeleteSubmissions(ctx context.Context, patientID uuid.UUID) (int, error)
}

type UserRepository interface {
	CreateUser(context.Context, *user.User) error
	UpdateUser(context.Context, *user.User) error
	GetUserByID(context.Context, uuid.UUID) (*user.User, error)
	GetUserByUsername(context.Context, string) (*user.User, error)
	ListUsers(context.Context, user.Filter) ([]*user.User, error)
	DeleteUser(context.Context, uuid.UUID) error
	CountUsers(context.Context) (int, error)
}

// Store - полный набор хранилищ одного бэкенда
type Store interface {
	TaskRepository
	NotificationRepository
	TemplateRepository
	ChecklistRepository
	UserRepository
}

// Publisher рассылает сохранённые уведомления во внешние каналы
type Publisher interface {
	Publish(context.Context, *task.Notification) error
}
