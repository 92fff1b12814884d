package handlers

import (
	"context"

	"careTracker/internal/models/checklist"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"
	"careTracker/internal/results"
	"careTracker/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	AssignTask(ctx context.Context, actorID, patientID uuid.UUID, req service.AssignRequest) (*task.Task, error)
	AssignTasks(ctx context.Context, actorID, patientID uuid.UUID, reqs []service.AssignRequest) ([]*task.Task, error)
	GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context, actorID uuid.UUID) (*service.TaskList, error)
	ListPatientTasks(ctx context.Context, actorID, patientID uuid.UUID) (*service.TaskList, error)
	OpenTask(ctx context.Context, actorID, taskID uuid.UUID) (*service.OpenedTask, error)
	CompleteTask(ctx context.Context, taskID, actorID uuid.UUID, responses map[string]any) (*service.CompletedTask, error)
	TaskResults(ctx context.Context, actorID, taskID uuid.UUID) (*results.TaskResults, error)
	DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error
	DeletePatientTasks(ctx context.Context, actorID, patientID uuid.UUID) (int, error)
	ClearCompletedTasks(ctx context.Context, actorID uuid.UUID) (int, error)
	ClearAllTasks(ctx context.Context, actorID uuid.UUID) (int, error)
	ResetTaskResponses(ctx context.Context, actorID uuid.UUID) (int, error)
	Statistics(ctx context.Context, actorID uuid.UUID) (*service.Statistics, error)
}

type AccountService interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Me(ctx context.Context, actorID uuid.UUID) (*user.User, error)
	CreateUser(ctx context.Context, actorID uuid.UUID, req service.CreateUserRequest) (*user.User, error)
	ListUsers(ctx context.Context, actorID uuid.UUID, role *user.Role) ([]*user.User, error)
	DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error
	ChangePassword(ctx context.Context, actorID, targetID uuid.UUID, password string) error
	AssignCaregiver(ctx context.Context, actorID, patientID, caregiverID uuid.UUID) (*user.User, error)
}

type ChecklistService interface {
	Today(ctx context.Context, actorID uuid.UUID) (*service.ChecklistToday, error)
	SubmitChecklist(ctx context.Context, actorID uuid.UUID, responses map[string]any) (*checklist.Submission, error)
	ChecklistResults(ctx context.Context, actorID, patientID uuid.UUID) ([]*service.ChecklistEntry, error)
	ResetChecklist(ctx context.Context, actorID, patientID uuid.UUID) (int, error)
}

type TemplateService interface {
	CreateTemplate(ctx context.Context, actorID uuid.UUID, req service.CreateTemplateRequest) (*task.QuestionnaireTemplate, error)
	ListTemplates(ctx context.Context) ([]*task.QuestionnaireTemplate, error)
}

type NotificationService interface {
	ListNotifications(ctx context.Context, actorID uuid.UUID) ([]*task.Notification, error)
	MarkRead(ctx context.Context, actorID, notificationID uuid.UUID) error
}

type ExportService interface {
	ExportPatient(ctx context.Context, actorID, patientID uuid.UUID) (*service.ExportFile, error)
}

var (
	_ TaskService         = (*service.TaskService)(nil)
	_ AccountService      = (*service.AccountService)(nil)
	_ ChecklistService    = (*service.ChecklistService)(nil)
	_ TemplateService     = (*service.TemplateService)(nil)
	_ NotificationService = (*service.NotificationService)(nil)
	_ ExportService       = (*service.ExportService)(nil)
)
