package task

import (
	"time"

	"github.com/google/uuid"
)

// Response хранит ответы по задаче; создаётся при первом открытии задачи
type Response struct {
	TaskID      uuid.UUID      `json:"task_id" db:"task_id"`
	Responses   map[string]any `json:"responses" db:"responses"`
	StartedAt   time.Time      `json:"started_at" db:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	Score       *float64       `json:"score,omitempty" db:"score"`
}

func NewResponse(taskID uuid.UUID) *Response {
	return &Response{
		TaskID:    taskID,
		Responses: map[string]any{},
		StartedAt: time.Now(),
	}
}

type QuestionnaireTemplate struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description" db:"description"`
	Type        Type             `json:"task_type" db:"task_type"`
	Questions   []map[string]any `json:"questions" db:"questions"`
	CreatedBy   uuid.UUID        `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	IsActive    bool             `json:"is_active" db:"is_active"`
}
