package handlers

import (
	"context"
	"net/http"
	"time"

	"careTracker/internal/handlers/dto"
	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	"careTracker/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithPayload(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("error", err.Error()),
		)
		return
	}
	responseWithPayload(w, http.StatusOK, toPayload("status", "ok"))
}

func toAssignRequest(req dto.AssignTaskRequest) service.AssignRequest {
	return service.AssignRequest{
		TaskType:    task.Type(req.TaskType),
		Difficulty:  task.Difficulty(req.Difficulty),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		TemplateID:  req.TemplateID,
	}
}

func toTaskList(list *service.TaskList) dto.TaskListResponse {
	return dto.TaskListResponse{
		Pending:   dto.FromTaskList(list.Pending),
		Completed: dto.FromTaskList(list.Completed),
	}
}

// AssignTask: POST /patients/{id}/tasks
func (s *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var request dto.AssignTaskRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	created, err := s.TaskService.AssignTask(r.Context(), actor, patientID, toAssignRequest(request))
	if err != nil {
		handleServiceError(w, r, err, "assign_task")
		return
	}

	logger.Info("HTTP_OUT: Задача назначена",
		logger.TaskID(created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, dto.FromTask(created))
}

// BulkAssign: POST /patients/{id}/tasks/bulk
func (s *TaskHandler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var request dto.BulkAssignRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	reqs := make([]service.AssignRequest, 0, len(request.Tasks))
	for _, item := range request.Tasks {
		reqs = append(reqs, toAssignRequest(item))
	}

	created, err := s.TaskService.AssignTasks(r.Context(), actor, patientID, reqs)
	if err != nil {
		handleServiceError(w, r, err, "bulk_assign")
		return
	}

	responseWithPayload(w, http.StatusCreated,
		toPayload("created", len(created)),
		toPayload("tasks", dto.FromTaskList(created)),
	)
}

// PatientTasks: GET /patients/{id}/tasks
func (s *TaskHandler) PatientTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	list, err := s.TaskService.ListPatientTasks(r.Context(), actor, patientID)
	if err != nil {
		handleServiceError(w, r, err, "patient_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, toTaskList(list))
}

// DeletePatientTasks: DELETE /patients/{id}/tasks
func (s *TaskHandler) DeletePatientTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	n, err := s.TaskService.DeletePatientTasks(r.Context(), actor, patientID)
	if err != nil {
		handleServiceError(w, r, err, "delete_patient_tasks")
		return
	}
	responseWithPayload(w, http.StatusOK, toPayload("deleted", n))
}

// ListTasks: GET /tasks
func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	list, err := s.TaskService.ListTasks(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, toTaskList(list))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	t, err := s.TaskService.GetTask(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTask(t))
}

// TakeTask: GET /tasks/{id}/take, переводит задачу в работу
func (s *TaskHandler) TakeTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	opened, err := s.TaskService.OpenTask(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err, "take_task")
		return
	}

	responseWithPayload(w, http.StatusOK,
		toPayload("task", dto.FromTask(opened.Task)),
		toPayload("response", opened.Response),
		toPayload("take", opened.View),
	)
}

// SubmitTask: POST /tasks/{id}/submit
func (s *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var request dto.SubmitRequest
	if !decodeJSON(w, r, &request, true) {
		return
	}

	done, err := s.TaskService.CompleteTask(r.Context(), id, actor, request.Responses)
	if err != nil {
		handleServiceError(w, r, err, "submit_task")
		return
	}

	logger.Info("HTTP_OUT: Задача выполнена",
		logger.TaskID(done.Task.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithPayload(w, http.StatusOK,
		toPayload("message", "Task completed successfully"),
		toPayload("task", dto.FromTask(done.Task)),
		toPayload("response", done.Response),
	)
}

// TaskResults: GET /tasks/{id}/results
func (s *TaskHandler) TaskResults(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	res, err := s.TaskService.TaskResults(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err, "task_results")
		return
	}
	responseWithJSON(w, http.StatusOK, res)
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statistics: GET /tasks/statistics
func (s *TaskHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	stats, err := s.TaskService.Statistics(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, "statistics")
		return
	}
	responseWithJSON(w, http.StatusOK, stats)
}

func (s *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, "clear_completed", "deleted", s.TaskService.ClearCompletedTasks)
}

func (s *TaskHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, "clear_all", "deleted", s.TaskService.ClearAllTasks)
}

func (s *TaskHandler) ResetResponses(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, "reset_responses", "reset", s.TaskService.ResetTaskResponses)
}

func (s *TaskHandler) bulk(w http.ResponseWriter, r *http.Request, operation, key string,
	run func(ctx context.Context, actorID uuid.UUID) (int, error)) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	n, err := run(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, operation)
		return
	}

	logger.Info("HTTP: Массовая операция над задачами",
		zap.String("operation", operation),
		zap.Int("count", n))

	responseWithPayload(w, http.StatusOK, toPayload(key, n))
}
