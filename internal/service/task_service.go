package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careTracker/internal/access"
	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"
	rep "careTracker/internal/repository"
	"careTracker/internal/results"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка прав и ошибок бизнес-логики задач

type TaskService struct {
	tasks     TaskRepository
	users     UserRepository
	templates TemplateRepository
	publisher Publisher
	presenter *results.Presenter
	now       func() time.Time
}

func NewTaskService(tasks TaskRepository, users UserRepository, templates TemplateRepository,
	publisher Publisher, presenter *results.Presenter) *TaskService {
	if presenter == nil {
		presenter = results.NewPresenter(nil)
	}
	return &TaskService{
		tasks:     tasks,
		users:     users,
		templates: templates,
		publisher: publisher,
		presenter: presenter,
		now:       time.Now,
	}
}

// SetClock подменяет источник времени
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

type AssignRequest struct {
	TaskType    task.Type
	Difficulty  task.Difficulty
	Title       string
	Description string
	DueDate     *time.Time
	TemplateID  *uuid.UUID
}

type TaskList struct {
	Pending   []*task.Task `json:"pending"`
	Completed []*task.Task `json:"completed"`
}

type Statistics struct {
	Total     int `json:"total_tasks"`
	Pending   int `json:"pending_tasks"`
	Completed int `json:"completed_tasks"`
}

type OpenedTask struct {
	Task     *task.Task        `json:"task"`
	Response *task.Response    `json:"response"`
	View     *results.TakeView `json:"take"`
}

// CompletedTask - закрытая задача и сохранённый ответ с оценкой
type CompletedTask struct {
	Task     *task.Task     `json:"task"`
	Response *task.Response `json:"response"`
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.tasks.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) AssignTask(ctx context.Context, actorID, patientID uuid.UUID, req AssignRequest) (*task.Task, error) {
	actor, patient, err := s.assignmentParties(ctx, actorID, patientID)
	if err != nil {
		return nil, err
	}
	if req.TaskType == "" {
		return nil, NewValidationError("task_type", "обязательное поле")
	}

	t, err := s.buildTask(ctx, actor, patient, req)
	if err != nil {
		return nil, err
	}
	if err := s.createTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignTasks назначает пачку задач; записи без типа пропускаются,
// остальные проверяются до создания первой задачи
func (s *TaskService) AssignTasks(ctx context.Context, actorID, patientID uuid.UUID, reqs []AssignRequest) ([]*task.Task, error) {
	if len(reqs) == 0 {
		return nil, NewValidationError("tasks", "список задач пуст")
	}
	actor, patient, err := s.assignmentParties(ctx, actorID, patientID)
	if err != nil {
		return nil, err
	}

	prepared := make([]*task.Task, 0, len(reqs))
	for _, req := range reqs {
		if req.TaskType == "" {
			continue
		}
		t, err := s.buildTask(ctx, actor, patient, req)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, t)
	}

	created := make([]*task.Task, 0, len(prepared))
	for _, t := range prepared {
		if err := s.createTask(ctx, t); err != nil {
			return created, err
		}
		created = append(created, t)
	}

	logger.Info("Service: Пакетное назначение задач",
		zap.String("provider_id", actor.ID.String()),
		logger.PatientID(patient.ID),
		zap.Int("requested", len(reqs)),
		zap.Int("created", len(created)),
	)
	return created, nil
}

func (s *TaskService) assignmentParties(ctx context.Context, actorID, patientID uuid.UUID) (*user.User, *user.User, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, nil, err
	}
	patient, err := loadPatient(ctx, s.users, patientID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanAssignTasks(actor, patient) {
		return nil, nil, NewForbidden("assign_task")
	}
	return actor, patient, nil
}

func (s *TaskService) buildTask(ctx context.Context, actor, patient *user.User, req AssignRequest) (*task.Task, error) {
	if !req.TaskType.Valid() {
		return nil, NewValidationError("task_type", fmt.Sprintf("неизвестный тип %q", req.TaskType))
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		return nil, NewValidationError("difficulty", fmt.Sprintf("неизвестная сложность %q", req.Difficulty))
	}

	var tpl *task.QuestionnaireTemplate
	if req.TemplateID != nil {
		found, err := s.templates.GetTemplateByID(ctx, *req.TemplateID)
		if err != nil {
			return nil, fromRepo(err, ResourceTemplate, req.TemplateID.String(), "получение шаблона")
		}
		if !found.IsActive {
			return nil, NewNotFound(ResourceTemplate, req.TemplateID.String())
		}
		tpl = found
	}

	return task.New(req.TaskType, actor.ID, patient.ID,
		task.WithTitle(req.Title),
		task.WithDescription(req.Description),
		task.WithDifficulty(req.Difficulty),
		task.WithDueDate(req.DueDate),
		task.WithTemplate(tpl),
	), nil
}

func (s *TaskService) createTask(ctx context.Context, t *task.Task) error {
	n := task.AssignedNotification(t)
	if err := s.tasks.CreateTask(ctx, t, n); err != nil {
		return fromRepo(err, ResourceTask, t.ID.String(), "создание задачи")
	}
	publish(ctx, s.publisher, n)

	logger.Info("Service: Задача назначена",
		logger.TaskID(t.ID),
		zap.String("task_type", string(t.Type)),
		logger.PatientID(t.AssignedTo),
	)
	return nil
}

func (s *TaskService) getTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		}
		return nil, fromRepo(err, ResourceTask, id.String(), "получение задачи")
	}
	return t, nil
}

func (s *TaskService) GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*task.Task, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewTask(actor, t) {
		return nil, NewForbidden("view_task")
	}
	return t, nil
}

// ListTasks возвращает задачи, видимые актору: свои у пациента,
// задачи пациента у сиделки, назначенные им у врача
func (s *TaskService) ListTasks(ctx context.Context, actorID uuid.UUID) (*TaskList, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}

	var filter task.Filter
	switch actor.Role {
	case user.RolePatient:
		filter.AssignedTo = &actor.ID
	case user.RoleCaregiver:
		if actor.PatientID == nil || actor.ProviderID == nil {
			return &TaskList{Pending: []*task.Task{}, Completed: []*task.Task{}}, nil
		}
		filter.AssignedTo = actor.PatientID
		filter.AssignedBy = actor.ProviderID
	case user.RoleProvider:
		filter.AssignedBy = &actor.ID
	default:
		return nil, NewForbidden("list_tasks")
	}

	return s.listTasks(ctx, filter)
}

func (s *TaskService) ListPatientTasks(ctx context.Context, actorID, patientID uuid.UUID) (*TaskList, error) {
	actor, patient, err := s.assignmentParties(ctx, actorID, patientID)
	if err != nil {
		return nil, err
	}
	return s.listTasks(ctx, task.Filter{AssignedTo: &patient.ID, AssignedBy: &actor.ID})
}

func (s *TaskService) listTasks(ctx context.Context, filter task.Filter) (*TaskList, error) {
	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	list := &TaskList{Pending: []*task.Task{}, Completed: []*task.Task{}}
	for _, t := range tasks {
		if t.IsPending() {
			list.Pending = append(list.Pending, t)
		} else {
			list.Completed = append(list.Completed, t)
		}
	}
	return list, nil
}

// OpenTask открывает задачу на прохождение: создаёт ответ при первом обращении
// и переводит назначенную задачу в работу
func (s *TaskService) OpenTask(ctx context.Context, actorID, taskID uuid.UUID) (*OpenedTask, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanTakeTask(actor, t) {
		return nil, NewForbidden("take_task")
	}
	if t.Status == task.StatusCompleted {
		return nil, NewBusinessError(CodeAlreadyCompleted, "Задача уже выполнена",
			ToDetail("task_id", t.ID.String()))
	}

	view, err := s.presenter.TakeView(t)
	if err != nil {
		return nil, NewBusinessError(CodeNoResultShape, "Для задачи не настроено представление",
			ToDetail("task_type", t.Type)).Wrap(err)
	}

	resp, err := s.tasks.GetOrCreateResponse(ctx, t.ID)
	if err != nil {
		return nil, fromRepo(err, ResourceResponse, t.ID.String(), "получение ответа")
	}

	if t.Start() {
		err = s.tasks.UpdateTask(ctx, t)
		switch {
		case errors.Is(err, rep.ErrVersionConflict):
			// задачу параллельно открыли или выполнили
			if t, err = s.getTask(ctx, taskID); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, fromRepo(err, ResourceTask, t.ID.String(), "обновление задачи")
		default:
			logger.Info("Service: Задача взята в работу",
				logger.TaskID(t.ID),
				logger.ActorID(actor.ID),
			)
		}
	}

	return &OpenedTask{Task: t, Response: resp, View: view}, nil
}

// CompleteTask сохраняет ответы и оценку, закрывает задачу и уведомляет врача.
// Повторная отправка не меняет состояние.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, actorID uuid.UUID, responses map[string]any) (*CompletedTask, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanTakeTask(actor, t) {
		return nil, NewForbidden("complete_task")
	}
	if t.Status == task.StatusCompleted {
		return nil, alreadyCompleted(t)
	}
	if responses == nil {
		responses = map[string]any{}
	}

	score, err := s.presenter.Score(t, responses)
	if err != nil {
		return nil, NewBusinessError(CodeNoResultShape, "Для задачи не настроена оценка",
			ToDetail("task_type", t.Type)).Wrap(err)
	}

	resp, err := s.tasks.GetResponse(ctx, t.ID)
	if err != nil {
		if !errors.Is(err, rep.ErrNotFound) {
			return nil, fmt.Errorf("получение ответа: %w", err)
		}
		resp = task.NewResponse(t.ID)
	}

	now := s.now()
	resp.Responses = responses
	resp.CompletedAt = &now
	resp.Score = score

	if err := t.Complete(actor.ID, now); err != nil {
		return nil, alreadyCompleted(t)
	}
	n := task.CompletedNotification(t)

	if err := s.tasks.CompleteTask(ctx, t, resp, n); err != nil {
		if errors.Is(err, rep.ErrVersionConflict) {
			current, getErr := s.getTask(ctx, taskID)
			if getErr == nil && current.Status == task.StatusCompleted {
				return nil, alreadyCompleted(current)
			}
		}
		return nil, fromRepo(err, ResourceTask, t.ID.String(), "выполнение задачи")
	}
	publish(ctx, s.publisher, n)

	logger.Info("Service: Задача выполнена",
		logger.TaskID(t.ID),
		zap.String("task_type", string(t.Type)),
		zap.String("completed_by", actor.ID.String()),
	)
	return &CompletedTask{Task: t, Response: resp}, nil
}

func alreadyCompleted(t *task.Task) *BusinessError {
	return NewBusinessError(CodeAlreadyCompleted, "Задача уже выполнена",
		ToDetail("task_id", t.ID.String())).Wrap(task.ErrAlreadyCompleted)
}

func (s *TaskService) TaskResults(ctx context.Context, actorID, taskID uuid.UUID) (*results.TaskResults, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewResults(actor, t) {
		return nil, NewForbidden("view_results")
	}

	resp, err := s.tasks.GetResponse(ctx, t.ID)
	if err != nil && !errors.Is(err, rep.ErrNotFound) {
		return nil, fmt.Errorf("получение ответа: %w", err)
	}
	if resp == nil || resp.CompletedAt == nil {
		return nil, NewBusinessError(CodeNoResponse, "Ответ по задаче ещё не отправлен",
			ToDetail("task_id", t.ID.String()))
	}

	out, err := s.presenter.Present(t, resp)
	if err != nil {
		return nil, NewBusinessError(CodeNoResultShape, "Для задачи не настроен вид результатов",
			ToDetail("task_type", t.Type)).Wrap(err)
	}
	return out, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !access.CanDeleteTask(actor, t) {
		return NewForbidden("delete_task")
	}
	if err := s.tasks.DeleteTask(ctx, t.ID); err != nil {
		return fromRepo(err, ResourceTask, t.ID.String(), "удаление задачи")
	}

	logger.Info("Service: Задача удалена", logger.TaskID(t.ID))
	return nil
}

func (s *TaskService) DeletePatientTasks(ctx context.Context, actorID, patientID uuid.UUID) (int, error) {
	actor, patient, err := s.assignmentParties(ctx, actorID, patientID)
	if err != nil {
		return 0, err
	}
	n, err := s.tasks.DeleteTasks(ctx, task.Filter{AssignedTo: &patient.ID, AssignedBy: &actor.ID})
	if err != nil {
		return 0, fmt.Errorf("удаление задач пациента: %w", err)
	}

	logger.Info("Service: Удалены задачи пациента",
		logger.PatientID(patient.ID),
		zap.Int("count", n),
	)
	return n, nil
}

func (s *TaskService) bulkScope(ctx context.Context, actorID uuid.UUID, action string) (access.BulkScope, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return access.BulkScope{}, err
	}
	scope, ok := access.CanBulkReset(actor)
	if !ok {
		return access.BulkScope{}, NewForbidden(action)
	}
	return scope, nil
}

func (s *TaskService) ClearCompletedTasks(ctx context.Context, actorID uuid.UUID) (int, error) {
	scope, err := s.bulkScope(ctx, actorID, "clear_completed")
	if err != nil {
		return 0, err
	}
	filter := scope.Filter()
	filter.Statuses = []task.Status{task.StatusCompleted}

	n, err := s.tasks.DeleteTasks(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("удаление выполненных задач: %w", err)
	}
	logger.Info("Service: Удалены выполненные задачи", zap.Bool("global", scope.Global), zap.Int("count", n))
	return n, nil
}

func (s *TaskService) ClearAllTasks(ctx context.Context, actorID uuid.UUID) (int, error) {
	scope, err := s.bulkScope(ctx, actorID, "clear_all")
	if err != nil {
		return 0, err
	}
	n, err := s.tasks.DeleteTasks(ctx, scope.Filter())
	if err != nil {
		return 0, fmt.Errorf("удаление задач: %w", err)
	}
	logger.Info("Service: Удалены все задачи", zap.Bool("global", scope.Global), zap.Int("count", n))
	return n, nil
}

// ResetTaskResponses удаляет ответы и возвращает задачи в статус assigned
func (s *TaskService) ResetTaskResponses(ctx context.Context, actorID uuid.UUID) (int, error) {
	scope, err := s.bulkScope(ctx, actorID, "reset_responses")
	if err != nil {
		return 0, err
	}
	n, err := s.tasks.ResetResponses(ctx, scope.Filter())
	if err != nil {
		return 0, fmt.Errorf("сброс ответов: %w", err)
	}
	logger.Info("Service: Ответы сброшены", zap.Bool("global", scope.Global), zap.Int("count", n))
	return n, nil
}

func (s *TaskService) Statistics(ctx context.Context, actorID uuid.UUID) (*Statistics, error) {
	scope, err := s.bulkScope(ctx, actorID, "statistics")
	if err != nil {
		return nil, err
	}

	count := func(statuses ...task.Status) (int, error) {
		filter := scope.Filter()
		filter.Statuses = statuses
		return s.tasks.CountTasks(ctx, filter)
	}

	stats := &Statistics{}
	if stats.Total, err = count(); err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}
	if stats.Pending, err = count(task.PendingStatuses...); err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}
	if stats.Completed, err = count(task.StatusCompleted); err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}
	return stats, nil
}

// SendReminders отправляет напоминания по просроченным задачам, не больше limit за вызов
func (s *TaskService) SendReminders(ctx context.Context, limit int) (int, error) {
	now := s.now()
	overdue, err := s.tasks.ListOverdueTasks(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("получение просроченных задач: %w", err)
	}

	sent := 0
	for _, t := range overdue {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		n := task.ReminderNotification(t)
		t.ReminderSentAt = &now
		if err := s.tasks.MarkReminded(ctx, t, n); err != nil {
			if errors.Is(err, rep.ErrVersionConflict) || errors.Is(err, rep.ErrNotFound) {
				continue
			}
			logger.Error("Service: Не удалось сохранить напоминание", err, logger.TaskID(t.ID))
			continue
		}
		publish(ctx, s.publisher, n)
		sent++
	}
	return sent, nil
}
