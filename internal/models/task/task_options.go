package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

// New собирает назначенную задачу; nil-опции пропускаются
func New(taskType Type, assignedBy, assignedTo uuid.UUID, options ...TaskOption) *Task {
	now := time.Now()
	t := &Task{
		ID:         uuid.New(),
		Title:      taskType.DisplayName(),
		Type:       taskType,
		Status:     StatusAssigned,
		AssignedBy: assignedBy,
		AssignedTo: assignedTo,
		CreatedAt:  now,
		AssignedAt: now,
		Config:     map[string]any{},
		Version:    1,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = description
	}
}

// WithDifficulty задаёт сложность только играм; пустое значение даёт сложность по умолчанию
func WithDifficulty(d Difficulty) TaskOption {
	return func(task *Task) {
		if !task.Type.IsGame() {
			task.Difficulty = nil
			return
		}
		if d == "" {
			d = DefaultDifficulty
		}
		task.Difficulty = &d
	}
}

func WithDueDate(dueDate *time.Time) TaskOption {
	if dueDate == nil || dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		due := *dueDate
		task.DueDate = &due
	}
}

func WithConfigValue(key string, value any) TaskOption {
	return func(task *Task) {
		if task.Config == nil {
			task.Config = map[string]any{}
		}
		task.Config[key] = value
	}
}

// WithTemplate связывает задачу с шаблоном опросника
func WithTemplate(tpl *QuestionnaireTemplate) TaskOption {
	if tpl == nil {
		return nil
	}
	return func(task *Task) {
		if task.Config == nil {
			task.Config = map[string]any{}
		}
		task.Config["template_id"] = tpl.ID.String()
		task.Config["questions"] = tpl.Questions
	}
}
