package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"careTracker/internal/models/checklist"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"
	"careTracker/internal/repository"
	"careTracker/internal/repository/inmemory"
	"careTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ service.Store = (*inmemory.Storage)(nil)

func seedTask(t *testing.T, storage *inmemory.Storage, taskType task.Type, by, to uuid.UUID, opts ...task.TaskOption) *task.Task {
	t.Helper()
	created := task.New(taskType, by, to, opts...)
	require.NoError(t, storage.CreateTask(context.Background(), created, task.AssignedNotification(created)))
	return created
}

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	storage := inmemory.New()
	assert.NotNil(t, storage)
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestStorage_CreateTask тестирует создание задачи вместе с уведомлением
func TestStorage_CreateTask(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	provider, patient := uuid.New(), uuid.New()

	created := seedTask(t, storage, task.TypePuzzle, provider, patient, task.WithDifficulty(""))

	got, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Memory Puzzle", got.Title)
	assert.Equal(t, "mild", got.DifficultyString())
	assert.Equal(t, 1, got.Version)

	notes, err := storage.ListNotifications(ctx, patient)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, task.NotificationAssigned, notes[0].Type)

	err = storage.CreateTask(ctx, created, nil)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = storage.GetTaskByID(ctx, uuid.New())
	assert.Equal(t, repository.ErrNotFound, err)
}

// TestStorage_CopiesAreIsolated тестирует, что изменения копии не попадают в хранилище
func TestStorage_CopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	created := seedTask(t, storage, task.TypeChecklist, uuid.New(), uuid.New())

	got, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	got.Status = task.StatusCompleted
	got.Config["template_id"] = "x"

	again, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, again.Status)
	assert.NotContains(t, again.Config, "template_id")
}

// TestStorage_Versioning тестирует оптимистичную блокировку
func TestStorage_Versioning(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	created := seedTask(t, storage, task.TypeColor, uuid.New(), uuid.New())

	first, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)

	require.True(t, first.Start())
	require.NoError(t, storage.UpdateTask(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Title = "stale"
	err = storage.UpdateTask(ctx, second)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	err = storage.UpdateTask(ctx, task.New(task.TypeColor, uuid.New(), uuid.New()))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_ListTasks тестирует фильтры и порядок выдачи
func TestStorage_ListTasks(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	provider, other := uuid.New(), uuid.New()
	patient := uuid.New()

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created := task.New(task.TypePairs, provider, patient)
		created.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.CreateTask(ctx, created, nil))
		ids = append(ids, created.ID)
	}
	seedTask(t, storage, task.TypePairs, other, uuid.New())

	tasks, err := storage.ListTasks(ctx, task.Filter{AssignedBy: &provider})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, ids[2], tasks[0].ID)
	assert.Equal(t, ids[0], tasks[2].ID)

	all, err := storage.ListTasks(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := storage.CountTasks(ctx, task.Filter{AssignedTo: &patient, Statuses: task.PendingStatuses})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = storage.CountTasks(ctx, task.Filter{Statuses: []task.Status{task.StatusCompleted}})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestStorage_CompleteAndReset тестирует выполнение задачи и сброс ответов
func TestStorage_CompleteAndReset(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	provider, patient := uuid.New(), uuid.New()
	created := seedTask(t, storage, task.TypeColor, provider, patient)

	resp, err := storage.GetOrCreateResponse(ctx, created.ID)
	require.NoError(t, err)
	again, err := storage.GetOrCreateResponse(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.StartedAt, again.StartedAt)

	_, err = storage.GetOrCreateResponse(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	now := time.Now()
	score := 4.0
	resp.Responses = map[string]any{"score": 4}
	resp.CompletedAt = &now
	resp.Score = &score
	require.NoError(t, created.Complete(patient, now))
	require.NoError(t, storage.CompleteTask(ctx, created, resp, task.CompletedNotification(created)))

	stored, err := storage.GetResponse(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *stored.Score)

	notes, err := storage.ListNotifications(ctx, provider)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, task.NotificationCompleted, notes[0].Type)

	n, err := storage.ResetResponses(ctx, task.Filter{AssignedBy: &provider})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reset, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, reset.Status)
	assert.Nil(t, reset.CompletedAt)
	assert.Nil(t, reset.CompletedBy)

	_, err = storage.GetResponse(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_DeleteTasks тестирует удаление задач с ответами и уведомлениями
func TestStorage_DeleteTasks(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	provider, patient := uuid.New(), uuid.New()

	first := seedTask(t, storage, task.TypeChecklist, provider, patient)
	second := seedTask(t, storage, task.TypeChecklist, provider, patient)
	seedTask(t, storage, task.TypeChecklist, uuid.New(), patient)
	_, err := storage.GetOrCreateResponse(ctx, first.ID)
	require.NoError(t, err)

	require.NoError(t, storage.DeleteTask(ctx, second.ID))
	assert.ErrorIs(t, storage.DeleteTask(ctx, second.ID), repository.ErrNotFound)

	n, err := storage.DeleteTasks(ctx, task.Filter{AssignedBy: &provider})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = storage.GetResponse(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	notes, err := storage.ListNotifications(ctx, patient)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	left, err := storage.ListTasks(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

// TestStorage_Overdue тестирует выборку просроченных задач для напоминаний
func TestStorage_Overdue(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := seedTask(t, storage, task.TypeColor, uuid.New(), uuid.New(), task.WithDueDate(&past))
	seedTask(t, storage, task.TypeColor, uuid.New(), uuid.New(), task.WithDueDate(&future))
	seedTask(t, storage, task.TypeColor, uuid.New(), uuid.New())

	tasks, err := storage.ListOverdueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, overdue.ID, tasks[0].ID)

	reminded := tasks[0]
	reminded.ReminderSentAt = &now
	require.NoError(t, storage.MarkReminded(ctx, reminded, task.ReminderNotification(reminded)))

	tasks, err = storage.ListOverdueTasks(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestStorage_Checklist тестирует ограничение одного чек-листа в день
func TestStorage_Checklist(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	patient := uuid.New()
	day := checklist.Day(time.Now(), time.UTC)

	ok, err := storage.ExistsSubmission(ctx, patient, day)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.CreateSubmission(ctx, checklist.New(patient, patient, day, map[string]any{"item_1": true})))
	err = storage.CreateSubmission(ctx, checklist.New(patient, patient, day, nil))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	yesterday := day.AddDate(0, 0, -1)
	require.NoError(t, storage.CreateSubmission(ctx, checklist.New(patient, patient, yesterday, nil)))

	subs, err := storage.ListSubmissions(ctx, patient)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.True(t, subs[0].SubmissionDate.Equal(day))

	n, err := storage.DeleteSubmissions(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestStorage_ConcurrentChecklist тестирует гонку отправок чек-листа за один день
func TestStorage_ConcurrentChecklist(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	patient := uuid.New()
	day := checklist.Day(time.Now(), time.UTC)
	goroutines := 20

	var wg sync.WaitGroup
	results := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- storage.CreateSubmission(ctx, checklist.New(patient, patient, day, nil))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	}
	assert.Equal(t, 1, succeeded)
}

// TestStorage_ConcurrentAccess тестирует конкурентное создание задач
func TestStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	taskCount := 100
	goroutines := 10
	provider := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, taskCount)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < taskCount/goroutines; j++ {
				created := task.New(task.TypeChecklist, provider, uuid.New(), task.WithTitle(fmt.Sprintf("Task %d-%d", workerID, j)))
				if err := storage.CreateTask(ctx, created, nil); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := storage.CountTasks(ctx, task.Filter{AssignedBy: &provider})
	require.NoError(t, err)
	assert.Equal(t, taskCount, count)
}

// TestStorage_Users тестирует учётные записи и каскадное удаление
func TestStorage_Users(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	provider := &user.User{ID: uuid.New(), Username: "dr.house", Role: user.RoleProvider}
	patient := &user.User{ID: uuid.New(), Username: "patient", Role: user.RolePatient, ProviderID: &provider.ID}
	caregiver := &user.User{ID: uuid.New(), Username: "carer", Role: user.RoleCaregiver, ProviderID: &provider.ID, PatientID: &patient.ID}
	for _, u := range []*user.User{provider, patient, caregiver} {
		require.NoError(t, storage.CreateUser(ctx, u))
	}

	err := storage.CreateUser(ctx, &user.User{ID: uuid.New(), Username: "Dr.House", Role: user.RoleAdmin})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := storage.GetUserByUsername(ctx, "DR.HOUSE")
	require.NoError(t, err)
	assert.Equal(t, provider.ID, got.ID)

	role := user.RoleCaregiver
	list, err := storage.ListUsers(ctx, user.Filter{ProviderID: &provider.ID, Role: &role})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, caregiver.ID, list[0].ID)

	seedTask(t, storage, task.TypeChecklist, provider.ID, patient.ID)
	require.NoError(t, storage.CreateSubmission(ctx, checklist.New(patient.ID, caregiver.ID, checklist.Day(time.Now(), nil), nil)))

	require.NoError(t, storage.DeleteUser(ctx, patient.ID))
	assert.ErrorIs(t, storage.DeleteUser(ctx, patient.ID), repository.ErrNotFound)

	count, err := storage.CountTasks(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	carer, err := storage.GetUserByID(ctx, caregiver.ID)
	require.NoError(t, err)
	assert.Nil(t, carer.PatientID)
	assert.NotNil(t, carer.ProviderID)

	total, err := storage.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

// TestStorage_TemplatesAndNotifications тестирует шаблоны и отметку уведомлений
func TestStorage_TemplatesAndNotifications(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	author := uuid.New()

	for _, name := range []string{"Weekly", "Annual"} {
		require.NoError(t, storage.CreateTemplate(ctx, &task.QuestionnaireTemplate{
			ID: uuid.New(), Name: name, Type: task.TypeMemoryQuestionnaire, CreatedBy: author, IsActive: true,
		}))
	}
	require.NoError(t, storage.CreateTemplate(ctx, &task.QuestionnaireTemplate{
		ID: uuid.New(), Name: "Archived", Type: task.TypeMemoryQuestionnaire, CreatedBy: author,
	}))

	active, err := storage.ListTemplates(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Annual", active[0].Name)

	all, err := storage.ListTemplates(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	patient := uuid.New()
	created := seedTask(t, storage, task.TypeChecklist, author, patient)
	notes, err := storage.ListNotifications(ctx, patient)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	err = storage.MarkNotificationRead(ctx, notes[0].ID, uuid.New(), time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, storage.MarkNotificationRead(ctx, notes[0].ID, patient, time.Now()))

	notes, err = storage.ListNotifications(ctx, patient)
	require.NoError(t, err)
	assert.NotNil(t, notes[0].ReadAt)

	err = storage.CreateNotification(ctx, task.ReminderNotification(task.New(task.TypeColor, author, patient)))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, storage.CreateNotification(ctx, task.ReminderNotification(created)))
}
