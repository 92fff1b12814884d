package inmemory

import (
	"context"
	"time"

	"careTracker/internal/models/task"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task, n *task.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskToCreate.ID]; ok {
		return repo.ErrDuplicate
	}
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}
	if taskToCreate.Version == 0 {
		taskToCreate.Version = 1
	}

	s.tasks[taskToCreate.ID] = cloneTask(taskToCreate)
	s.taskIDs = append(s.taskIDs, taskToCreate.ID)
	if n != nil {
		s.notifications[n.ID] = cloneNotification(n)
	}
	return nil
}

// updateLocked проверяет версию и сохраняет копию; вызывается под блокировкой записи
func (s *Storage) updateLocked(taskToUpdate *task.Task) error {
	existed, ok := s.tasks[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	taskToUpdate.Version++
	s.tasks[taskToUpdate.ID] = cloneTask(taskToUpdate)
	return nil
}

func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.updateLocked(taskToUpdate)
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneTask(taskToGet), nil
}

func (s *Storage) ListTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for i := len(s.taskIDs) - 1; i >= 0; i-- {
		t := s.tasks[s.taskIDs[i]]
		if filter.Match(t) {
			res = append(res, cloneTask(t))
		}
	}
	newestTasksFirst(res)
	return res, nil
}

func (s *Storage) CountTasks(ctx context.Context, filter task.Filter) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, t := range s.tasks {
		if filter.Match(t) {
			count++
		}
	}
	return count, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	s.deleteTaskLocked(id)
	return nil
}

// DeleteTasks удаляет задачи по фильтру вместе с ответами и уведомлениями
func (s *Storage) DeleteTasks(ctx context.Context, filter task.Filter) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var matched []uuid.UUID
	for _, id := range s.taskIDs {
		if filter.Match(s.tasks[id]) {
			matched = append(matched, id)
		}
	}
	for _, id := range matched {
		s.deleteTaskLocked(id)
	}
	return len(matched), nil
}

func (s *Storage) deleteTaskLocked(id uuid.UUID) {
	delete(s.tasks, id)
	delete(s.responses, id)
	for nid, n := range s.notifications {
		if n.TaskID == id {
			delete(s.notifications, nid)
		}
	}
	for ind, val := range s.taskIDs {
		if val == id {
			s.taskIDs = append(s.taskIDs[:ind], s.taskIDs[ind+1:]...)
			break
		}
	}
}

func (s *Storage) ListOverdueTasks(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var tasks []*task.Task
	for _, id := range s.taskIDs {
		if limit > 0 && len(tasks) >= limit {
			break
		}

		t := s.tasks[id]
		if t.IsOverdue(now) && t.ReminderSentAt == nil {
			tasks = append(tasks, cloneTask(t))
		}
	}
	return tasks, nil
}

func (s *Storage) MarkReminded(ctx context.Context, t *task.Task, n *task.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.updateLocked(t); err != nil {
		return err
	}
	if n != nil {
		s.notifications[n.ID] = cloneNotification(n)
	}
	return nil
}

func (s *Storage) GetResponse(ctx context.Context, taskID uuid.UUID) (*task.Response, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	r, ok := s.responses[taskID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneResponse(r), nil
}

func (s *Storage) GetOrCreateResponse(ctx context.Context, taskID uuid.UUID) (*task.Response, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil, repo.ErrNotFound
	}
	r, ok := s.responses[taskID]
	if !ok {
		r = task.NewResponse(taskID)
		s.responses[taskID] = r
	}
	return cloneResponse(r), nil
}

func (s *Storage) CompleteTask(ctx context.Context, t *task.Task, r *task.Response, n *task.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.updateLocked(t); err != nil {
		return err
	}
	s.responses[t.ID] = cloneResponse(r)
	if n != nil {
		s.notifications[n.ID] = cloneNotification(n)
	}
	return nil
}

// ResetResponses удаляет ответы и возвращает начатые и выполненные задачи в assigned
func (s *Storage) ResetResponses(ctx context.Context, filter task.Filter) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	count := 0
	for id, t := range s.tasks {
		if !filter.Match(t) {
			continue
		}
		if _, ok := s.responses[id]; ok {
			delete(s.responses, id)
			count++
		}
		if t.Status != task.StatusAssigned {
			reset := cloneTask(t)
			reset.Reset()
			reset.Version++
			s.tasks[id] = reset
		}
	}
	return count, nil
}
