package inmemory

import (
	"context"
	"sort"
	"time"

	"careTracker/internal/models/task"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

func (s *Storage) CreateTemplate(ctx context.Context, tpl *task.QuestionnaireTemplate) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.templates[tpl.ID]; ok {
		return repo.ErrDuplicate
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now()
	}
	s.templates[tpl.ID] = cloneTemplate(tpl)
	return nil
}

func (s *Storage) GetTemplateByID(ctx context.Context, id uuid.UUID) (*task.QuestionnaireTemplate, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tpl, ok := s.templates[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneTemplate(tpl), nil
}

func (s *Storage) ListTemplates(ctx context.Context, activeOnly bool) ([]*task.QuestionnaireTemplate, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.QuestionnaireTemplate{}
	for _, tpl := range s.templates {
		if activeOnly && !tpl.IsActive {
			continue
		}
		res = append(res, cloneTemplate(tpl))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}
