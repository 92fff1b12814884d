package dto

import (
	"time"

	"careTracker/internal/models/task"
	"careTracker/internal/models/user"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Username   string     `json:"username" validate:"required,min=3,max=150"`
	Password   string     `json:"password" validate:"required,min=8,max=128"`
	FirstName  string     `json:"first_name" validate:"max=150"`
	LastName   string     `json:"last_name" validate:"max=150"`
	Email      string     `json:"email" validate:"omitempty,email"`
	Role       string     `json:"role" validate:"required,oneof=admin provider caregiver patient"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type AssignCaregiverRequest struct {
	CaregiverID uuid.UUID `json:"caregiver_id" validate:"required"`
}

// AssignTaskRequest: тип задачи проверяет сервис, в пакетном назначении пустой тип допустим
type AssignTaskRequest struct {
	TaskType    string     `json:"task_type" validate:"max=50"`
	Difficulty  string     `json:"difficulty" validate:"omitempty,oneof=mild moderate major"`
	Title       string     `json:"title" validate:"max=200"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
}

type BulkAssignRequest struct {
	Tasks []AssignTaskRequest `json:"tasks" validate:"required,min=1,max=50,dive"`
}

type SubmitRequest struct {
	Responses map[string]any `json:"responses"`
}

type CreateTemplateRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description"`
	Questions   []map[string]any `json:"questions"`
}

type TaskResponse struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	TaskType       string         `json:"task_type"`
	TypeName       string         `json:"task_type_display"`
	Difficulty     string         `json:"difficulty,omitempty"`
	Status         string         `json:"status"`
	AssignedBy     uuid.UUID      `json:"assigned_by"`
	AssignedTo     uuid.UUID      `json:"assigned_to"`
	CompletedBy    *uuid.UUID     `json:"completed_by,omitempty"`
	AssignedAt     time.Time      `json:"assigned_at"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ReminderSentAt *time.Time     `json:"reminder_sent_at,omitempty"`
	Config         map[string]any `json:"task_config"`
	IsOverdue      bool           `json:"is_overdue"`
	Version        int            `json:"version"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		TaskType:       string(t.Type),
		TypeName:       t.Type.DisplayName(),
		Difficulty:     t.DifficultyString(),
		Status:         string(t.Status),
		AssignedBy:     t.AssignedBy,
		AssignedTo:     t.AssignedTo,
		CompletedBy:    t.CompletedBy,
		AssignedAt:     t.AssignedAt,
		DueDate:        t.DueDate,
		CompletedAt:    t.CompletedAt,
		ReminderSentAt: t.ReminderSentAt,
		Config:         t.Config,
		IsOverdue:      t.IsOverdue(time.Now()),
		Version:        t.Version,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type TaskListResponse struct {
	Pending   []TaskResponse `json:"pending"`
	Completed []TaskResponse `json:"completed"`
}

type UserResponse struct {
	ID         uuid.UUID  `json:"id"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	PatientID  *uuid.UUID `json:"patient_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName(),
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       string(u.Role),
		ProviderID: u.ProviderID,
		PatientID:  u.PatientID,
		CreatedAt:  u.CreatedAt,
	}
}

func FromUserList(users []*user.User) []UserResponse {
	result := make([]UserResponse, len(users))
	for i, u := range users {
		result[i] = FromUser(u)
	}
	return result
}
