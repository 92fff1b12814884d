package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, name, description, task_type, questions, created_by, created_at, is_active`

func scanTemplate(row pgx.Row) (*task.QuestionnaireTemplate, error) {
	tpl := &task.QuestionnaireTemplate{}
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Type, &tpl.Questions, &tpl.CreatedBy, &tpl.CreatedAt, &tpl.IsActive)
	if err != nil {
		return nil, err
	}
	if tpl.Questions == nil {
		tpl.Questions = []map[string]any{}
	}
	return tpl, nil
}

func (s *Storage) CreateTemplate(ctx context.Context, tpl *task.QuestionnaireTemplate) error {
	start := time.Now()
	defer logSlow("create_template", start)

	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now()
	}
	if tpl.Questions == nil {
		tpl.Questions = []map[string]any{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO questionnaire_templates (`+templateColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tpl.ID, tpl.Name, tpl.Description, string(tpl.Type), tpl.Questions, tpl.CreatedBy, tpl.CreatedAt, tpl.IsActive)
	if err != nil {
		logger.Error("Repository: Не удалось создать шаблон", err)
		return fmt.Errorf("создание шаблона: %w", mapError(err))
	}
	return nil
}

func (s *Storage) GetTemplateByID(ctx context.Context, id uuid.UUID) (*task.QuestionnaireTemplate, error) {
	tpl, err := scanTemplate(s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM questionnaire_templates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить шаблон", err)
		return nil, fmt.Errorf("получение шаблона: %w", err)
	}
	return tpl, nil
}

func (s *Storage) ListTemplates(ctx context.Context, activeOnly bool) ([]*task.QuestionnaireTemplate, error) {
	start := time.Now()
	defer logSlow("list_templates", start)

	rows, err := s.pool.Query(ctx, `SELECT `+templateColumns+` FROM questionnaire_templates
				WHERE is_active OR NOT $1
				ORDER BY name`, activeOnly)
	if err != nil {
		logger.Error("Repository: Не удалось получить шаблоны", err)
		return nil, fmt.Errorf("получение шаблонов: %w", err)
	}
	defer rows.Close()

	templates := []*task.QuestionnaireTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование шаблона: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return templates, nil
}
