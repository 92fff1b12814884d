package inmemory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"careTracker/internal/logger"
	"careTracker/internal/models/checklist"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"

	"github.com/google/uuid"
)

// Storage хранит все сущности в памяти под одной блокировкой.
// Наружу отдаются копии, чтобы изменения вне хранилища не обходили проверку версий.
type Storage struct {
	mtx *sync.RWMutex

	tasks   map[uuid.UUID]*task.Task
	taskIDs []uuid.UUID

	responses     map[uuid.UUID]*task.Response
	notifications map[uuid.UUID]*task.Notification
	templates     map[uuid.UUID]*task.QuestionnaireTemplate
	submissions   map[uuid.UUID]*checklist.Submission
	users         map[uuid.UUID]*user.User
}

func New() *Storage {
	return &Storage{
		mtx:           &sync.RWMutex{},
		tasks:         make(map[uuid.UUID]*task.Task),
		taskIDs:       []uuid.UUID{},
		responses:     make(map[uuid.UUID]*task.Response),
		notifications: make(map[uuid.UUID]*task.Notification),
		templates:     make(map[uuid.UUID]*task.QuestionnaireTemplate),
		submissions:   make(map[uuid.UUID]*checklist.Submission),
		users:         make(map[uuid.UUID]*user.User),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.Config = maps.Clone(t.Config)
	if c.Config == nil {
		c.Config = map[string]any{}
	}
	return &c
}

func cloneResponse(r *task.Response) *task.Response {
	c := *r
	c.Responses = maps.Clone(r.Responses)
	if c.Responses == nil {
		c.Responses = map[string]any{}
	}
	return &c
}

func cloneNotification(n *task.Notification) *task.Notification {
	c := *n
	return &c
}

func cloneTemplate(t *task.QuestionnaireTemplate) *task.QuestionnaireTemplate {
	c := *t
	c.Questions = append([]map[string]any(nil), t.Questions...)
	return &c
}

func cloneSubmission(sub *checklist.Submission) *checklist.Submission {
	c := *sub
	c.Responses = maps.Clone(sub.Responses)
	return &c
}

func cloneUser(u *user.User) *user.User {
	c := *u
	return &c
}

// newestTasksFirst сортирует по created_at DESC; при равенстве позже добавленная выше
func newestTasksFirst(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}
