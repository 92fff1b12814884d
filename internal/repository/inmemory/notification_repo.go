package inmemory

import (
	"context"
	"sort"
	"time"

	"careTracker/internal/models/task"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

func (s *Storage) CreateNotification(ctx context.Context, n *task.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[n.TaskID]; !ok {
		return repo.ErrNotFound
	}
	s.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (s *Storage) ListNotifications(ctx context.Context, recipient uuid.UUID) ([]*task.Notification, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Notification{}
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			res = append(res, cloneNotification(n))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id, recipient uuid.UUID, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return repo.ErrNotFound
	}
	if n.ReadAt == nil {
		read := at
		n.ReadAt = &read
	}
	return nil
}
