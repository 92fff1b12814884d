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
	"go.uber.org/zap"
)

const taskColumns = `id, title, description, task_type, difficulty, status,
	assigned_by, assigned_to, completed_by, created_at, assigned_at, due_date,
	completed_at, task_config, reminder_sent_at, version`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var difficulty *string
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Type,
		&difficulty,
		&t.Status,
		&t.AssignedBy,
		&t.AssignedTo,
		&t.CompletedBy,
		&t.CreatedAt,
		&t.AssignedAt,
		&t.DueDate,
		&t.CompletedAt,
		&t.Config,
		&t.ReminderSentAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	if difficulty != nil {
		d := task.Difficulty(*difficulty)
		t.Difficulty = &d
	}
	if t.Config == nil {
		t.Config = map[string]any{}
	}
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]*task.Task, error) {
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func taskWhere(filter task.Filter) *whereBuilder {
	w := &whereBuilder{}
	if filter.AssignedTo != nil {
		w.add("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.AssignedBy != nil {
		w.add("assigned_by = ?", *filter.AssignedBy)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY(?)", statuses)
	}
	return w
}

func difficultyArg(t *task.Task) *string {
	if t.Difficulty == nil {
		return nil
	}
	d := string(*t.Difficulty)
	return &d
}

func insertNotification(ctx context.Context, q querier, n *task.Notification) error {
	_, err := q.Exec(ctx, `INSERT INTO task_notifications
				(id, task_id, recipient, message, notification_type, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.TaskID, n.Recipient, n.Message, string(n.Type), n.CreatedAt)
	return err
}

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task, n *task.Notification) error {
	start := time.Now()
	defer logSlow("create_task", start)

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}
	if taskToCreate.AssignedAt.IsZero() {
		taskToCreate.AssignedAt = taskToCreate.CreatedAt
	}
	if taskToCreate.Config == nil {
		taskToCreate.Config = map[string]any{}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO tasks
				(id, title, description, task_type, difficulty, status, assigned_by, assigned_to,
				 created_at, assigned_at, due_date, task_config, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
				RETURNING version`,
			taskToCreate.ID,
			taskToCreate.Title,
			taskToCreate.Description,
			string(taskToCreate.Type),
			difficultyArg(taskToCreate),
			string(taskToCreate.Status),
			taskToCreate.AssignedBy,
			taskToCreate.AssignedTo,
			taskToCreate.CreatedAt,
			taskToCreate.AssignedAt,
			taskToCreate.DueDate,
			taskToCreate.Config,
		).Scan(&taskToCreate.Version)
		if err != nil {
			return err
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", mapError(err))
	}
	return nil
}

// updateTask сохраняет изменения задачи с проверкой версии
func updateTask(ctx context.Context, q querier, taskToUpdate *task.Task) error {
	err := q.QueryRow(ctx, `UPDATE tasks
			SET title = $1,
				description = $2,
				difficulty = $3,
				status = $4,
				completed_by = $5,
				due_date = $6,
				completed_at = $7,
				task_config = $8,
				reminder_sent_at = $9,
				version = version + 1
			WHERE id = $10 AND version = $11
			RETURNING version`,
		taskToUpdate.Title,
		taskToUpdate.Description,
		difficultyArg(taskToUpdate),
		string(taskToUpdate.Status),
		taskToUpdate.CompletedBy,
		taskToUpdate.DueDate,
		taskToUpdate.CompletedAt,
		taskToUpdate.Config,
		taskToUpdate.ReminderSentAt,
		taskToUpdate.ID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Repository: Конфликт версий при обновлении задачи",
				logger.TaskID(taskToUpdate.ID),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		return err
	}
	return nil
}

func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer logSlow("update_task", start)

	if err := updateTask(ctx, s.pool, taskToUpdate); err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer logSlow("get_task", start)

	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *Storage) ListTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("list_tasks", start)

	w := taskWhere(filter)
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return collectTasks(rows)
}

func (s *Storage) CountTasks(ctx context.Context, filter task.Filter) (int, error) {
	start := time.Now()
	defer logSlow("count_tasks", start)

	w := taskWhere(filter)
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+w.sql(), w.args...).Scan(&count); err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return count, nil
}

// DeleteTask удаляет задачу; ответы и уведомления удаляются каскадом
func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("delete_task", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteTasks(ctx context.Context, filter task.Filter) (int, error) {
	start := time.Now()
	defer logSlow("delete_tasks", start)

	w := taskWhere(filter)
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tasks`+w.sql(), w.args...)
		deleted = tag.RowsAffected()
		return err
	})
	if err != nil {
		logger.Error("Repository: Массовое удаление задач", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("удаление задач: %w", err)
	}
	return int(deleted), nil
}

func (s *Storage) ListOverdueTasks(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("list_overdue", start)

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks
				WHERE status <> 'completed'
				  AND due_date < $1
				  AND reminder_sent_at IS NULL
				ORDER BY due_date
				LIMIT NULLIF($2::int, 0)`, now, limit)
	if err != nil {
		logger.Error("Repository: Не удалось получить просроченные задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение просроченных задач: %w", err)
	}
	return collectTasks(rows)
}

func (s *Storage) MarkReminded(ctx context.Context, t *task.Task, n *task.Notification) error {
	start := time.Now()
	defer logSlow("mark_reminded", start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateTask(ctx, tx, t); err != nil {
			return err
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
	if err != nil && !errors.Is(err, repo.ErrVersionConflict) {
		logger.Error("Repository: Не удалось сохранить напоминание", err)
		return fmt.Errorf("сохранение напоминания: %w", mapError(err))
	}
	return err
}

func scanResponse(row pgx.Row) (*task.Response, error) {
	r := &task.Response{}
	if err := row.Scan(&r.TaskID, &r.Responses, &r.StartedAt, &r.CompletedAt, &r.Score); err != nil {
		return nil, err
	}
	if r.Responses == nil {
		r.Responses = map[string]any{}
	}
	return r, nil
}

func (s *Storage) GetResponse(ctx context.Context, taskID uuid.UUID) (*task.Response, error) {
	start := time.Now()
	defer logSlow("get_response", start)

	r, err := scanResponse(s.pool.QueryRow(ctx, `SELECT task_id, responses, started_at, completed_at, score
				FROM task_responses WHERE task_id = $1`, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить ответ", err)
		return nil, fmt.Errorf("получение ответа: %w", err)
	}
	return r, nil
}

// GetOrCreateResponse создаёт пустой ответ при первом обращении; повторный вызов возвращает существующий
func (s *Storage) GetOrCreateResponse(ctx context.Context, taskID uuid.UUID) (*task.Response, error) {
	start := time.Now()
	defer logSlow("get_or_create_response", start)

	_, err := s.pool.Exec(ctx, `INSERT INTO task_responses (task_id, responses, started_at)
				VALUES ($1, '{}'::jsonb, NOW())
				ON CONFLICT (task_id) DO NOTHING`, taskID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось создать ответ", err)
		return nil, fmt.Errorf("создание ответа: %w", err)
	}
	return s.GetResponse(ctx, taskID)
}

func (s *Storage) CompleteTask(ctx context.Context, t *task.Task, r *task.Response, n *task.Notification) error {
	start := time.Now()
	defer logSlow("complete_task", start)

	if r.Responses == nil {
		r.Responses = map[string]any{}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateTask(ctx, tx, t); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO task_responses (task_id, responses, started_at, completed_at, score)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (task_id) DO UPDATE
				SET responses = EXCLUDED.responses,
					completed_at = EXCLUDED.completed_at,
					score = EXCLUDED.score`,
			t.ID, r.Responses, r.StartedAt, r.CompletedAt, r.Score)
		if err != nil {
			return err
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		logger.Error("Repository: Не удалось завершить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("завершение задачи: %w", mapError(err))
	}
	return nil
}

func (s *Storage) ResetResponses(ctx context.Context, filter task.Filter) (int, error) {
	start := time.Now()
	defer logSlow("reset_responses", start)

	w := taskWhere(filter)
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM task_responses
				WHERE task_id IN (SELECT id FROM tasks`+w.sql()+`)`, w.args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()

		w.add("status <> ?", string(task.StatusAssigned))
		_, err = tx.Exec(ctx, `UPDATE tasks
				SET status = 'assigned',
					completed_at = NULL,
					completed_by = NULL,
					version = version + 1`+w.sql(), w.args...)
		return err
	})
	if err != nil {
		logger.Error("Repository: Не удалось сбросить ответы", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("сброс ответов: %w", err)
	}
	return int(deleted), nil
}
