package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Title          string         `json:"title" db:"title"`
	Description    string         `json:"description" db:"description"`
	Type           Type           `json:"task_type" db:"task_type"`
	Difficulty     *Difficulty    `json:"difficulty,omitempty" db:"difficulty"`
	Status         Status         `json:"status" db:"status"`
	AssignedBy     uuid.UUID      `json:"assigned_by" db:"assigned_by"`
	AssignedTo     uuid.UUID      `json:"assigned_to" db:"assigned_to"`
	CompletedBy    *uuid.UUID     `json:"completed_by,omitempty" db:"completed_by"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	AssignedAt     time.Time      `json:"assigned_at" db:"assigned_at"`
	DueDate        *time.Time     `json:"due_date,omitempty" db:"due_date"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	Config         map[string]any `json:"task_config" db:"task_config"`
	ReminderSentAt *time.Time     `json:"reminder_sent_at,omitempty" db:"reminder_sent_at"`
	Version        int            `json:"version" db:"version"`
}

type Status string

const StatusAssigned Status = "assigned"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

// PendingStatuses - задачи, которые ещё ждут выполнения
var PendingStatuses = []Status{StatusAssigned, StatusInProgress}

type Type string

const TypeMemoryQuestionnaire Type = "memory_questionnaire"
const TypeChecklist Type = "checklist"
const TypePuzzle Type = "puzzle"
const TypeColor Type = "color"
const TypePairs Type = "pairs"

var Types = []Type{TypeMemoryQuestionnaire, TypeChecklist, TypePuzzle, TypeColor, TypePairs}

var displayNames = map[Type]string{
	TypeMemoryQuestionnaire: "Memory Questionnaire",
	TypeChecklist:           "Checklist",
	TypePuzzle:              "Memory Puzzle",
	TypeColor:               "Color Matching",
	TypePairs:               "Pairs Game",
}

func (t Type) Valid() bool {
	_, ok := displayNames[t]
	return ok
}

func (t Type) IsGame() bool {
	return t == TypePuzzle || t == TypeColor || t == TypePairs
}

// DisplayName возвращает заголовок задачи для типа; неизвестный тип
// превращается в "Title Case" из snake_case
func (t Type) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(string(t), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

type Difficulty string

const DifficultyMild Difficulty = "mild"
const DifficultyModerate Difficulty = "moderate"
const DifficultyMajor Difficulty = "major"

const DefaultDifficulty = DifficultyMild

func (d Difficulty) Valid() bool {
	return d == DifficultyMild || d == DifficultyModerate || d == DifficultyMajor
}

var ErrAlreadyCompleted = errors.New("задача уже выполнена")

func (t *Task) DifficultyString() string {
	if t.Difficulty == nil {
		return ""
	}
	return string(*t.Difficulty)
}

func (t *Task) IsPending() bool {
	return t.Status == StatusAssigned || t.Status == StatusInProgress
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.IsPending() && t.DueDate != nil && t.DueDate.Before(now)
}

// Start переводит назначенную задачу в работу; возвращает true, если статус изменился
func (t *Task) Start() bool {
	if t.Status != StatusAssigned {
		return false
	}
	t.Status = StatusInProgress
	return true
}

func (t *Task) Complete(by uuid.UUID, at time.Time) error {
	if t.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	t.Status = StatusCompleted
	t.CompletedBy = &by
	t.CompletedAt = &at
	return nil
}

// Reset возвращает задачу в исходное состояние после сброса ответов
func (t *Task) Reset() {
	t.Status = StatusAssigned
	t.CompletedAt = nil
	t.CompletedBy = nil
}

// Filter отбирает задачи для списков, массового удаления и статистики
type Filter struct {
	AssignedTo *uuid.UUID
	AssignedBy *uuid.UUID
	Statuses   []Status
}

func (f Filter) Match(t *Task) bool {
	if f.AssignedTo != nil && t.AssignedTo != *f.AssignedTo {
		return false
	}
	if f.AssignedBy != nil && t.AssignedBy != *f.AssignedBy {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}
