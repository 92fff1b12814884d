package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"careTracker/internal/access"
	"careTracker/internal/logger"
	"careTracker/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TemplateService struct {
	templates TemplateRepository
	users     UserRepository
	now       func() time.Time
}

func NewTemplateService(templates TemplateRepository, users UserRepository) *TemplateService {
	return &TemplateService{templates: templates, users: users, now: time.Now}
}

type CreateTemplateRequest struct {
	Name        string
	Description string
	Questions   []map[string]any
}

func (s *TemplateService) CreateTemplate(ctx context.Context, actorID uuid.UUID, req CreateTemplateRequest) (*task.QuestionnaireTemplate, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageTemplates(actor) {
		return nil, NewForbidden("create_template")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("name", "обязательное поле")
	}
	questions := req.Questions
	if questions == nil {
		questions = []map[string]any{}
	}

	tpl := &task.QuestionnaireTemplate{
		ID:          uuid.New(),
		Name:        name,
		Description: req.Description,
		Type:        task.TypeMemoryQuestionnaire,
		Questions:   questions,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now(),
		IsActive:    true,
	}
	if err := s.templates.CreateTemplate(ctx, tpl); err != nil {
		return nil, fromRepo(err, ResourceTemplate, tpl.ID.String(), "создание шаблона")
	}

	logger.Info("Service: Шаблон опросника создан",
		zap.String("template_id", tpl.ID.String()),
		zap.Int("questions", len(tpl.Questions)),
	)
	return tpl, nil
}

// ListTemplates возвращает активные шаблоны, отсортированные по имени
func (s *TemplateService) ListTemplates(ctx context.Context) ([]*task.QuestionnaireTemplate, error) {
	templates, err := s.templates.ListTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("получение шаблонов: %w", err)
	}
	return templates, nil
}
