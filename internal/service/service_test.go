package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"careTracker/internal/auth"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"
	rep "careTracker/internal/repository"
	"careTracker/internal/repository/inmemory"
	"careTracker/internal/results"
	"careTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockTaskRepository - мок репозитория задач. Неперехваченные методы уходят
// во вложенное хранилище.
type MockTaskRepository struct {
	mock.Mock
	service.TaskRepository
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) CompleteTask(ctx context.Context, t *task.Task, r *task.Response, n *task.Notification) error {
	args := m.Called(ctx, t, r, n)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

// MockPublisher - мок внешнего канала уведомлений
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, n *task.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

var _ service.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) published(nType task.NotificationType) int {
	count := 0
	for _, call := range m.Calls {
		if n, ok := call.Arguments.Get(1).(*task.Notification); ok && n.Type == nType {
			count++
		}
	}
	return count
}

const testPassword = "correct-horse"

type fixture struct {
	ctx       context.Context
	store     *inmemory.Storage
	publisher *MockPublisher

	tasks      *service.TaskService
	checklists *service.ChecklistService
	accounts   *service.AccountService
	templates  *service.TemplateService
	notices    *service.NotificationService
	exports    *service.ExportService

	admin     *user.User
	provider  *user.User
	other     *user.User
	patient   *user.User
	caregiver *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:       context.Background(),
		store:     inmemory.New(),
		publisher: new(MockPublisher),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenService(strings.Repeat("k", auth.MinSecretLength), time.Hour)
	require.NoError(t, err)

	presenter := results.NewPresenter(nil)
	f.tasks = service.NewTaskService(f.store, f.store, f.store, f.publisher, presenter)
	f.checklists = service.NewChecklistService(f.store, f.store, time.UTC)
	f.accounts = service.NewAccountService(f.store, hasher, tokens)
	f.templates = service.NewTemplateService(f.store, f.store)
	f.notices = service.NewNotificationService(f.store)
	f.exports = service.NewExportService(f.store, f.store, f.store, presenter)

	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	seed := func(username string, role user.Role, provider, patient *user.User) *user.User {
		u := &user.User{ID: uuid.New(), Username: username, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
		if provider != nil {
			u.ProviderID = &provider.ID
		}
		if patient != nil {
			u.PatientID = &patient.ID
		}
		require.NoError(t, f.store.CreateUser(f.ctx, u))
		return u
	}
	f.admin = seed("admin", user.RoleAdmin, nil, nil)
	f.provider = seed("dr_house", user.RoleProvider, nil, nil)
	f.other = seed("dr_wilson", user.RoleProvider, nil, nil)
	f.patient = seed("jane", user.RolePatient, f.provider, nil)
	f.caregiver = seed("mary", user.RoleCaregiver, f.provider, f.patient)
	return f
}

func (f *fixture) assign(t *testing.T, taskType task.Type, opts ...func(*service.AssignRequest)) *task.Task {
	t.Helper()
	req := service.AssignRequest{TaskType: taskType}
	for _, opt := range opts {
		opt(&req)
	}
	created, err := f.tasks.AssignTask(f.ctx, f.provider.ID, f.patient.ID, req)
	require.NoError(t, err)
	return created
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var bErr *service.BusinessError
	require.True(t, errors.As(err, &bErr), "ожидалась бизнес-ошибка, получено: %v", err)
	assert.Equal(t, code, bErr.Code)
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectError: false,
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			store := inmemory.New()
			svc := service.NewTaskService(mockRepo, store, store, service.Publisher(nil), nil)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_AssignTask тестирует назначение задачи и проверки запроса
func TestTaskService_AssignTask(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		actor     func() uuid.UUID
		patient   func() uuid.UUID
		req       service.AssignRequest
		errorCode string
	}{
		{
			name:    "success - game gets default difficulty",
			actor:   func() uuid.UUID { return f.provider.ID },
			patient: func() uuid.UUID { return f.patient.ID },
			req:     service.AssignRequest{TaskType: task.TypeColor},
		},
		{
			name:      "error - empty task type",
			actor:     func() uuid.UUID { return f.provider.ID },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - unknown task type",
			actor:     func() uuid.UUID { return f.provider.ID },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{TaskType: "crossword"},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - unknown difficulty",
			actor:     func() uuid.UUID { return f.provider.ID },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{TaskType: task.TypePairs, Difficulty: "extreme"},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - foreign provider",
			actor:     func() uuid.UUID { return f.other.ID },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{TaskType: task.TypeChecklist},
			errorCode: service.CodeForbidden,
		},
		{
			name:      "error - caregiver cannot assign",
			actor:     func() uuid.UUID { return f.caregiver.ID },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{TaskType: task.TypeChecklist},
			errorCode: service.CodeForbidden,
		},
		{
			name:      "error - target is not a patient",
			actor:     func() uuid.UUID { return f.provider.ID },
			patient:   func() uuid.UUID { return f.caregiver.ID },
			req:       service.AssignRequest{TaskType: task.TypeChecklist},
			errorCode: service.CodeNotFound,
		},
		{
			name:      "error - unknown actor",
			actor:     func() uuid.UUID { return uuid.New() },
			patient:   func() uuid.UUID { return f.patient.ID },
			req:       service.AssignRequest{TaskType: task.TypeChecklist},
			errorCode: service.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := f.tasks.AssignTask(f.ctx, tt.actor(), tt.patient(), tt.req)
			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, task.StatusAssigned, created.Status)
			assert.Equal(t, "Color Matching", created.Title)
			assert.Equal(t, "mild", created.DifficultyString())
		})
	}

	notes, err := f.store.ListNotifications(f.ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "New task assigned: Color Matching", notes[0].Message)
	assert.Equal(t, 1, f.publisher.published(task.NotificationAssigned))
}

// TestTaskService_AssignTaskNonGame тестирует, что у не-игр нет сложности
func TestTaskService_AssignTaskNonGame(t *testing.T) {
	f := newFixture(t)
	due := time.Now().Add(24 * time.Hour)

	created := f.assign(t, task.TypeChecklist, func(r *service.AssignRequest) {
		r.Difficulty = task.DifficultyMajor
		r.Title = "Morning routine"
		r.DueDate = &due
	})
	assert.Nil(t, created.Difficulty)
	assert.Equal(t, "Morning routine", created.Title)
	require.NotNil(t, created.DueDate)
}

// TestTaskService_AssignTasks тестирует пакетное назначение
func TestTaskService_AssignTasks(t *testing.T) {
	f := newFixture(t)

	_, err := f.tasks.AssignTasks(f.ctx, f.provider.ID, f.patient.ID, nil)
	assertCode(t, err, service.CodeValidation)

	_, err = f.tasks.AssignTasks(f.ctx, f.provider.ID, f.patient.ID, []service.AssignRequest{
		{TaskType: task.TypePuzzle},
		{TaskType: "unknown"},
	})
	assertCode(t, err, service.CodeValidation)

	count, err := f.store.CountTasks(f.ctx, task.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count, "невалидная пачка не должна создавать задачи")

	created, err := f.tasks.AssignTasks(f.ctx, f.provider.ID, f.patient.ID, []service.AssignRequest{
		{TaskType: task.TypePuzzle, Difficulty: task.DifficultyModerate},
		{},
		{TaskType: task.TypeMemoryQuestionnaire},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, 2, f.publisher.published(task.NotificationAssigned))
}

// TestTaskService_AssignWithTemplate тестирует назначение опросника по шаблону
func TestTaskService_AssignWithTemplate(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.templates.CreateTemplate(f.ctx, f.provider.ID, service.CreateTemplateRequest{
		Name:      "Baseline",
		Questions: []map[string]any{{"id": "q1", "text": "Do you forget names?"}},
	})
	require.NoError(t, err)

	created := f.assign(t, task.TypeMemoryQuestionnaire, func(r *service.AssignRequest) {
		r.TemplateID = &tpl.ID
	})
	assert.Equal(t, tpl.ID.String(), created.Config["template_id"])

	opened, err := f.tasks.OpenTask(f.ctx, f.patient.ID, created.ID)
	require.NoError(t, err)
	assert.Contains(t, opened.View.Config, "questions")

	inactive := &task.QuestionnaireTemplate{ID: uuid.New(), Name: "Old", Type: task.TypeMemoryQuestionnaire, CreatedBy: f.provider.ID}
	require.NoError(t, f.store.CreateTemplate(f.ctx, inactive))

	_, err = f.tasks.AssignTask(f.ctx, f.provider.ID, f.patient.ID,
		service.AssignRequest{TaskType: task.TypeMemoryQuestionnaire, TemplateID: &inactive.ID})
	assertCode(t, err, service.CodeNotFound)

	missing := uuid.New()
	_, err = f.tasks.AssignTask(f.ctx, f.provider.ID, f.patient.ID,
		service.AssignRequest{TaskType: task.TypeMemoryQuestionnaire, TemplateID: &missing})
	assertCode(t, err, service.CodeNotFound)
}

// TestTaskService_OpenTask тестирует открытие задачи на прохождение
func TestTaskService_OpenTask(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypeColor, func(r *service.AssignRequest) { r.Difficulty = task.DifficultyModerate })

	_, err := f.tasks.OpenTask(f.ctx, f.provider.ID, created.ID)
	assertCode(t, err, service.CodeForbidden)

	opened, err := f.tasks.OpenTask(f.ctx, f.patient.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, opened.Task.Status)
	assert.Equal(t, "tasks/games/color/moderate/take.html", opened.View.View)
	assert.Contains(t, opened.View.Config, "palette")
	assert.Empty(t, opened.Response.Responses)

	again, err := f.tasks.OpenTask(f.ctx, f.caregiver.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, again.Task.Status)
	assert.True(t, opened.Response.StartedAt.Equal(again.Response.StartedAt))

	_, err = f.tasks.OpenTask(f.ctx, f.patient.ID, uuid.New())
	assertCode(t, err, service.CodeNotFound)

	_, err = f.tasks.CompleteTask(f.ctx, created.ID, f.patient.ID, map[string]any{"score": 10})
	require.NoError(t, err)

	_, err = f.tasks.OpenTask(f.ctx, f.patient.ID, created.ID)
	assertCode(t, err, service.CodeAlreadyCompleted)
}

// TestTaskService_CompleteTask тестирует выполнение задачи и повторную отправку
func TestTaskService_CompleteTask(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypeColor)

	_, err := f.tasks.CompleteTask(f.ctx, created.ID, f.other.ID, map[string]any{"score": 55})
	assertCode(t, err, service.CodeForbidden)

	done, err := f.tasks.CompleteTask(f.ctx, created.ID, f.caregiver.ID, map[string]any{"score": 55, "moves": 12})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Task.Status)
	require.NotNil(t, done.Task.CompletedBy)
	assert.Equal(t, f.caregiver.ID, *done.Task.CompletedBy)
	require.NotNil(t, done.Response)
	require.NotNil(t, done.Response.Score)
	assert.Equal(t, 55.0, *done.Response.Score)

	resp, err := f.store.GetResponse(f.ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 55.0, *resp.Score)
	assert.NotNil(t, resp.CompletedAt)

	_, err = f.tasks.CompleteTask(f.ctx, created.ID, f.patient.ID, map[string]any{"score": 1})
	assertCode(t, err, service.CodeAlreadyCompleted)
	assert.ErrorIs(t, err, task.ErrAlreadyCompleted)

	notes, err := f.store.ListNotifications(f.ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, "Task completed: Color Matching", notes[0].Message)
	assert.Equal(t, 1, f.publisher.published(task.NotificationCompleted))

	resp, err = f.store.GetResponse(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.0, *resp.Score, "повторная отправка не должна менять ответ")
}

// TestTaskService_CompleteTaskNilResponses тестирует отправку без ответов
func TestTaskService_CompleteTaskNilResponses(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypeChecklist)

	_, err := f.tasks.CompleteTask(f.ctx, created.ID, f.patient.ID, nil)
	require.NoError(t, err)

	resp, err := f.store.GetResponse(f.ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, resp.Responses)
	assert.Nil(t, resp.Score)
}

// TestTaskService_CompleteTaskConcurrent тестирует одновременную отправку
func TestTaskService_CompleteTaskConcurrent(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypePairs)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tasks.CompleteTask(f.ctx, created.ID, f.patient.ID, map[string]any{"pairs": 6, "moves": 8})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertCode(t, err, service.CodeAlreadyCompleted)
	}
	assert.Equal(t, 1, succeeded)

	resp, err := f.store.GetResponse(f.ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 6.0, *resp.Score)

	res, err := f.tasks.TaskResults(f.ctx, f.provider.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "excellent", res.Analysis())

	notes, err := f.store.ListNotifications(f.ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

// TestTaskService_CompleteTaskConflict тестирует конфликт версий при записи
func TestTaskService_CompleteTaskConflict(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypeChecklist)

	mockRepo := &MockTaskRepository{TaskRepository: f.store}
	mockRepo.On("CompleteTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(rep.ErrVersionConflict)

	svc := service.NewTaskService(mockRepo, f.store, f.store, f.publisher, nil)
	_, err := svc.CompleteTask(f.ctx, created.ID, f.patient.ID, map[string]any{})
	assertCode(t, err, service.CodeVersionConflict)
	assert.ErrorIs(t, err, rep.ErrVersionConflict)

	mockRepo.AssertExpectations(t)
}

// TestTaskService_TaskResults тестирует выдачу результатов
func TestTaskService_TaskResults(t *testing.T) {
	f := newFixture(t)
	created := f.assign(t, task.TypeColor)

	_, err := f.tasks.TaskResults(f.ctx, f.provider.ID, created.ID)
	assertCode(t, err, service.CodeNoResponse)

	_, err = f.tasks.OpenTask(f.ctx, f.patient.ID, created.ID)
	require.NoError(t, err)
	_, err = f.tasks.TaskResults(f.ctx, f.provider.ID, created.ID)
	assertCode(t, err, service.CodeNoResponse)

	_, err = f.tasks.CompleteTask(f.ctx, created.ID, f.patient.ID, map[string]any{"score": 35, "time": 62})
	require.NoError(t, err)

	for _, actor := range []*user.User{f.provider, f.patient, f.caregiver} {
		res, err := f.tasks.TaskResults(f.ctx, actor.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, results.KindGame, res.Kind)
		require.NotNil(t, res.Game)
		assert.Equal(t, "good", res.Game.Analysis)
		assert.Equal(t, "01:02", res.Game.TimeDisplay)
		assert.Equal(t, "tasks/games/color/mild/results.html", res.View)
	}

	_, err = f.tasks.TaskResults(f.ctx, f.other.ID, created.ID)
	assertCode(t, err, service.CodeForbidden)
}

// TestTaskService_ListTasks тестирует списки задач по ролям
func TestTaskService_ListTasks(t *testing.T) {
	f := newFixture(t)
	first := f.assign(t, task.TypeChecklist)
	f.assign(t, task.TypePuzzle)

	_, err := f.tasks.CompleteTask(f.ctx, first.ID, f.patient.ID, map[string]any{})
	require.NoError(t, err)

	for _, actor := range []*user.User{f.patient, f.caregiver, f.provider} {
		list, err := f.tasks.ListTasks(f.ctx, actor.ID)
		require.NoError(t, err)
		assert.Len(t, list.Pending, 1, actor.Username)
		assert.Len(t, list.Completed, 1, actor.Username)
	}

	list, err := f.tasks.ListTasks(f.ctx, f.other.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Pending)

	lonely := &user.User{ID: uuid.New(), Username: "lonely", Role: user.RoleCaregiver}
	require.NoError(t, f.store.CreateUser(f.ctx, lonely))
	list, err = f.tasks.ListTasks(f.ctx, lonely.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Pending)
	assert.Empty(t, list.Completed)

	_, err = f.tasks.ListTasks(f.ctx, f.admin.ID)
	assertCode(t, err, service.CodeForbidden)

	list, err = f.tasks.ListPatientTasks(f.ctx, f.provider.ID, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, list.Pending, 1)

	_, err = f.tasks.ListPatientTasks(f.ctx, f.other.ID, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)

	got, err := f.tasks.GetTask(f.ctx, f.caregiver.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.tasks.GetTask(f.ctx, f.other.ID, first.ID)
	assertCode(t, err, service.CodeForbidden)
}

// TestTaskService_DeleteTask тестирует удаление задач врачом
func TestTaskService_DeleteTask(t *testing.T) {
	f := newFixture(t)
	first := f.assign(t, task.TypeChecklist)
	f.assign(t, task.TypeChecklist)
	f.assign(t, task.TypeColor)

	assertCode(t, f.tasks.DeleteTask(f.ctx, f.other.ID, first.ID), service.CodeForbidden)
	assertCode(t, f.tasks.DeleteTask(f.ctx, f.patient.ID, first.ID), service.CodeForbidden)
	require.NoError(t, f.tasks.DeleteTask(f.ctx, f.provider.ID, first.ID))
	assertCode(t, f.tasks.DeleteTask(f.ctx, f.provider.ID, first.ID), service.CodeNotFound)

	_, err := f.tasks.DeletePatientTasks(f.ctx, f.other.ID, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)

	n, err := f.tasks.DeletePatientTasks(f.ctx, f.provider.ID, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestTaskService_BulkOperations тестирует массовые операции и статистику
func TestTaskService_BulkOperations(t *testing.T) {
	f := newFixture(t)
	done := f.assign(t, task.TypeColor)
	f.assign(t, task.TypeChecklist)
	f.assign(t, task.TypePairs)

	_, err := f.tasks.CompleteTask(f.ctx, done.ID, f.patient.ID, map[string]any{"score": 20})
	require.NoError(t, err)

	stats, err := f.tasks.Statistics(f.ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, service.Statistics{Total: 3, Pending: 2, Completed: 1}, *stats)

	stats, err = f.tasks.Statistics(f.ctx, f.other.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	_, err = f.tasks.Statistics(f.ctx, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)
	_, err = f.tasks.ResetTaskResponses(f.ctx, f.caregiver.ID)
	assertCode(t, err, service.CodeForbidden)

	n, err := f.tasks.ResetTaskResponses(f.ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reset, err := f.store.GetTaskByID(f.ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, reset.Status)

	_, err = f.tasks.CompleteTask(f.ctx, done.ID, f.patient.ID, map[string]any{"score": 20})
	require.NoError(t, err)

	n, err = f.tasks.ClearCompletedTasks(f.ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.tasks.ClearAllTasks(f.ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestTaskService_SendReminders тестирует напоминания о просроченных задачах
func TestTaskService_SendReminders(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.tasks.SetClock(func() time.Time { return now })

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	overdue := f.assign(t, task.TypeChecklist, func(r *service.AssignRequest) { r.DueDate = &past })
	f.assign(t, task.TypeChecklist, func(r *service.AssignRequest) { r.DueDate = &future })
	finished := f.assign(t, task.TypeChecklist, func(r *service.AssignRequest) { r.DueDate = &past })

	_, err := f.tasks.CompleteTask(f.ctx, finished.ID, f.patient.ID, map[string]any{})
	require.NoError(t, err)

	sent, err := f.tasks.SendReminders(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.tasks.SendReminders(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, sent, "напоминание отправляется один раз")

	reminded, err := f.store.GetTaskByID(f.ctx, overdue.ID)
	require.NoError(t, err)
	require.NotNil(t, reminded.ReminderSentAt)
	assert.True(t, reminded.ReminderSentAt.Equal(now))
	assert.Equal(t, 1, f.publisher.published(task.NotificationReminder))
}

// TestTaskService_PublishFailure тестирует, что сбой канала не ломает назначение
func TestTaskService_PublishFailure(t *testing.T) {
	f := newFixture(t)

	failing := new(MockPublisher)
	failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	svc := service.NewTaskService(f.store, f.store, f.store, failing, nil)
	created, err := svc.AssignTask(f.ctx, f.provider.ID, f.patient.ID, service.AssignRequest{TaskType: task.TypeChecklist})
	require.NoError(t, err)
	assert.NotNil(t, created)

	failing.AssertExpectations(t)
}

// TestChecklistService_Submit тестирует ежедневный чек-лист
func TestChecklistService_Submit(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.checklists.SetClock(func() time.Time { return day })

	today, err := f.checklists.Today(f.ctx, f.caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, today.PatientID)
	assert.Equal(t, "2026-05-01", today.Date)
	assert.True(t, today.CanSubmit)

	_, err = f.checklists.SubmitChecklist(f.ctx, f.provider.ID, map[string]any{})
	assertCode(t, err, service.CodeForbidden)

	sub, err := f.checklists.SubmitChecklist(f.ctx, f.caregiver.ID, map[string]any{
		"item_1": "on", "item_3": true, "item_4": true, "mood": " calm ",
	})
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, sub.PatientID)
	assert.Equal(t, f.caregiver.ID, sub.SubmittedBy)
	assert.Equal(t, "calm", sub.Responses["mood"])
	assert.NotContains(t, sub.Responses, "item_4")

	_, err = f.checklists.SubmitChecklist(f.ctx, f.patient.ID, map[string]any{"item_2": true})
	assertCode(t, err, service.CodeChecklistSubmitted)

	can, err := f.checklists.CanSubmitToday(f.ctx, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, can)

	f.checklists.SetClock(func() time.Time { return day.Add(24 * time.Hour) })
	_, err = f.checklists.SubmitChecklist(f.ctx, f.patient.ID, map[string]any{"item_2": true})
	require.NoError(t, err)

	entries, err := f.checklists.ChecklistResults(f.ctx, f.provider.ID, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Record.CheckedCount())
	assert.Equal(t, 2, entries[1].Record.CheckedCount())

	_, err = f.checklists.ChecklistResults(f.ctx, f.other.ID, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)

	_, err = f.checklists.ResetChecklist(f.ctx, f.caregiver.ID, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)

	n, err := f.checklists.ResetChecklist(f.ctx, f.provider.ID, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestChecklistService_TimeZone тестирует границу суток в часовом поясе клиники
func TestChecklistService_TimeZone(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	svc := service.NewChecklistService(f.store, f.store, loc)

	// 22:30 UTC - уже следующий день по местному времени
	svc.SetClock(func() time.Time { return time.Date(2026, 5, 1, 22, 30, 0, 0, time.UTC) })

	sub, err := svc.SubmitChecklist(f.ctx, f.patient.ID, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), sub.SubmissionDate)
}

// TestAccountService_Login тестирует вход по логину и паролю
func TestAccountService_Login(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		username  string
		password  string
		errorCode string
	}{
		{name: "success", username: "dr_house", password: testPassword},
		{name: "success - username case and spaces", username: " DR_House ", password: testPassword},
		{name: "error - wrong password", username: "dr_house", password: "wrong-password", errorCode: service.CodeUnauthorized},
		{name: "error - unknown user", username: "ghost", password: testPassword, errorCode: service.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.accounts.Login(f.ctx, tt.username, tt.password)
			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
			assert.Equal(t, f.provider.ID, res.User.ID)
			assert.True(t, res.ExpiresAt.After(time.Now()))
		})
	}
}

// TestAccountService_CreateUser тестирует создание учётных записей
func TestAccountService_CreateUser(t *testing.T) {
	f := newFixture(t)

	created, err := f.accounts.CreateUser(f.ctx, f.provider.ID, service.CreateUserRequest{
		Username: "bob", Password: "long-enough", Role: user.RolePatient,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ProviderID)
	assert.Equal(t, f.provider.ID, *created.ProviderID)
	assert.NotEqual(t, "long-enough", created.PasswordHash)

	_, err = f.accounts.Login(f.ctx, "bob", "long-enough")
	require.NoError(t, err)

	_, err = f.accounts.CreateUser(f.ctx, f.provider.ID, service.CreateUserRequest{
		Username: "BOB", Password: "long-enough", Role: user.RolePatient,
	})
	assertCode(t, err, service.CodeDuplicate)

	_, err = f.accounts.CreateUser(f.ctx, f.provider.ID, service.CreateUserRequest{
		Username: "root", Password: "long-enough", Role: user.RoleAdmin,
	})
	assertCode(t, err, service.CodeForbidden)

	_, err = f.accounts.CreateUser(f.ctx, f.patient.ID, service.CreateUserRequest{
		Username: "x", Password: "long-enough", Role: user.RolePatient,
	})
	assertCode(t, err, service.CodeForbidden)

	_, err = f.accounts.CreateUser(f.ctx, f.admin.ID, service.CreateUserRequest{
		Username: "short", Password: "1234", Role: user.RoleProvider,
	})
	assertCode(t, err, service.CodeValidation)

	_, err = f.accounts.CreateUser(f.ctx, f.admin.ID, service.CreateUserRequest{
		Username: "nurse", Password: "long-enough", Role: "nurse",
	})
	assertCode(t, err, service.CodeValidation)

	_, err = f.accounts.CreateUser(f.ctx, f.admin.ID, service.CreateUserRequest{
		Username: "kid", Password: "long-enough", Role: user.RolePatient, ProviderID: &f.patient.ID,
	})
	assertCode(t, err, service.CodeValidation)

	linked, err := f.accounts.CreateUser(f.ctx, f.admin.ID, service.CreateUserRequest{
		Username: "kid", Password: "long-enough", Role: user.RolePatient, ProviderID: &f.other.ID,
	})
	require.NoError(t, err)
	assert.True(t, linked.ManagedBy(f.other.ID))
}

// TestAccountService_Users тестирует списки, удаление, пароли и привязку сиделок
func TestAccountService_Users(t *testing.T) {
	f := newFixture(t)

	all, err := f.accounts.ListUsers(f.ctx, f.admin.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	role := user.RolePatient
	mine, err := f.accounts.ListUsers(f.ctx, f.provider.ID, &role)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.patient.ID, mine[0].ID)

	self, err := f.accounts.ListUsers(f.ctx, f.patient.ID, nil)
	require.NoError(t, err)
	require.Len(t, self, 1)

	me, err := f.accounts.Me(f.ctx, f.caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, "mary", me.Username)

	assertCode(t, f.accounts.ChangePassword(f.ctx, f.other.ID, f.patient.ID, "new-password"), service.CodeForbidden)
	require.NoError(t, f.accounts.ChangePassword(f.ctx, f.provider.ID, f.patient.ID, "new-password"))
	_, err = f.accounts.Login(f.ctx, "jane", "new-password")
	require.NoError(t, err)

	spare := &user.User{ID: uuid.New(), Username: "spare", Role: user.RoleCaregiver}
	require.NoError(t, f.store.CreateUser(f.ctx, spare))

	_, err = f.accounts.AssignCaregiver(f.ctx, f.other.ID, f.patient.ID, spare.ID)
	assertCode(t, err, service.CodeForbidden)
	_, err = f.accounts.AssignCaregiver(f.ctx, f.provider.ID, f.patient.ID, f.other.ID)
	assertCode(t, err, service.CodeValidation)

	linked, err := f.accounts.AssignCaregiver(f.ctx, f.provider.ID, f.patient.ID, spare.ID)
	require.NoError(t, err)
	assert.True(t, linked.CaresFor(f.patient.ID))
	assert.True(t, linked.ManagedBy(f.provider.ID))

	assertCode(t, f.accounts.DeleteUser(f.ctx, f.admin.ID, f.admin.ID), service.CodeForbidden)
	assertCode(t, f.accounts.DeleteUser(f.ctx, f.provider.ID, f.other.ID), service.CodeForbidden)
	require.NoError(t, f.accounts.DeleteUser(f.ctx, f.provider.ID, f.patient.ID))
	assertCode(t, f.accounts.DeleteUser(f.ctx, f.admin.ID, f.patient.ID), service.CodeNotFound)

	_, err = f.accounts.Me(f.ctx, f.patient.ID)
	assertCode(t, err, service.CodeUnauthorized)
}

// TestAccountService_EnsureAdmin тестирует создание администратора при первом запуске
func TestAccountService_EnsureAdmin(t *testing.T) {
	store := inmemory.New()
	tokens, err := auth.NewTokenService(strings.Repeat("s", auth.MinSecretLength), time.Hour)
	require.NoError(t, err)
	svc := service.NewAccountService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "", "whatever")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.EnsureAdmin(ctx, "admin", "short")
	assertCode(t, err, service.CodeValidation)

	created, err = svc.EnsureAdmin(ctx, "admin", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin2", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, "admin", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, res.User.Role)
}

// TestTemplateService тестирует шаблоны опросников
func TestTemplateService(t *testing.T) {
	f := newFixture(t)

	_, err := f.templates.CreateTemplate(f.ctx, f.patient.ID, service.CreateTemplateRequest{Name: "x"})
	assertCode(t, err, service.CodeForbidden)

	_, err = f.templates.CreateTemplate(f.ctx, f.provider.ID, service.CreateTemplateRequest{Name: "  "})
	assertCode(t, err, service.CodeValidation)

	tpl, err := f.templates.CreateTemplate(f.ctx, f.admin.ID, service.CreateTemplateRequest{Name: "Weekly"})
	require.NoError(t, err)
	assert.Equal(t, task.TypeMemoryQuestionnaire, tpl.Type)
	assert.True(t, tpl.IsActive)
	assert.NotNil(t, tpl.Questions)

	list, err := f.templates.ListTemplates(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// TestNotificationService тестирует уведомления получателя
func TestNotificationService(t *testing.T) {
	f := newFixture(t)
	f.assign(t, task.TypeChecklist)

	notes, err := f.notices.ListNotifications(f.ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].ReadAt)

	assertCode(t, f.notices.MarkRead(f.ctx, f.provider.ID, notes[0].ID), service.CodeNotFound)
	require.NoError(t, f.notices.MarkRead(f.ctx, f.patient.ID, notes[0].ID))

	notes, err = f.notices.ListNotifications(f.ctx, f.patient.ID)
	require.NoError(t, err)
	assert.NotNil(t, notes[0].ReadAt)
}

// TestExportService тестирует выгрузку пациента
func TestExportService(t *testing.T) {
	f := newFixture(t)
	done := f.assign(t, task.TypeColor)
	f.assign(t, task.TypeChecklist)

	_, err := f.tasks.CompleteTask(f.ctx, done.ID, f.patient.ID, map[string]any{"score": 70})
	require.NoError(t, err)
	_, err = f.checklists.SubmitChecklist(f.ctx, f.patient.ID, map[string]any{"item_1": true})
	require.NoError(t, err)

	_, err = f.exports.ExportPatient(f.ctx, f.other.ID, f.patient.ID)
	assertCode(t, err, service.CodeForbidden)

	file, err := f.exports.ExportPatient(f.ctx, f.caregiver.ID, f.patient.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Name, "jane_"))
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	assert.NotEmpty(t, file.Data)
}
