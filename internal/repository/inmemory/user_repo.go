package inmemory

import (
	"context"
	"sort"
	"strings"
	"time"

	"careTracker/internal/models/user"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

func (s *Storage) usernameTakenLocked(username string, except uuid.UUID) bool {
	for _, u := range s.users {
		if u.ID != except && strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[u.ID]; ok || s.usernameTakenLocked(u.Username, u.ID) {
		return repo.ErrDuplicate
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if s.usernameTakenLocked(u.Username, u.ID) {
		return repo.ErrDuplicate
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

// ListUsers возвращает пользователей по логину в алфавитном порядке
func (s *Storage) ListUsers(ctx context.Context, filter user.Filter) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*user.User{}
	for _, u := range s.users {
		if filter.Match(u) {
			res = append(res, cloneUser(u))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

// DeleteUser повторяет каскад внешних ключей PostgreSQL: задачи, ответы, уведомления
// и чек-листы пользователя удаляются, привязки сиделок и пациентов обнуляются
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.users, id)

	var taskIDs []uuid.UUID
	for tid, t := range s.tasks {
		if t.AssignedTo == id || t.AssignedBy == id {
			taskIDs = append(taskIDs, tid)
			continue
		}
		if t.CompletedBy != nil && *t.CompletedBy == id {
			c := cloneTask(t)
			c.CompletedBy = nil
			s.tasks[tid] = c
		}
	}
	for _, tid := range taskIDs {
		s.deleteTaskLocked(tid)
	}

	for nid, n := range s.notifications {
		if n.Recipient == id {
			delete(s.notifications, nid)
		}
	}
	for sid, sub := range s.submissions {
		if sub.PatientID == id || sub.SubmittedBy == id {
			delete(s.submissions, sid)
		}
	}
	for tid, tpl := range s.templates {
		if tpl.CreatedBy == id {
			delete(s.templates, tid)
		}
	}
	for uid, u := range s.users {
		if (u.PatientID != nil && *u.PatientID == id) || (u.ProviderID != nil && *u.ProviderID == id) {
			c := cloneUser(u)
			if c.PatientID != nil && *c.PatientID == id {
				c.PatientID = nil
			}
			if c.ProviderID != nil && *c.ProviderID == id {
				c.ProviderID = nil
			}
			s.users[uid] = c
		}
	}
	return nil
}

func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.users), nil
}
