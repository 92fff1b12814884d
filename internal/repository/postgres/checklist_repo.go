package postgres

import (
	"context"
	"fmt"
	"time"

	"careTracker/internal/logger"
	"careTracker/internal/models/checklist"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

// CreateSubmission полагается на ограничение UNIQUE (patient_id, submission_date)
func (s *Storage) CreateSubmission(ctx context.Context, sub *checklist.Submission) error {
	start := time.Now()
	defer logSlow("create_submission", start)

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.Responses == nil {
		sub.Responses = map[string]any{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO daily_checklist_submissions
				(id, patient_id, submitted_by, submission_date, responses, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.PatientID, sub.SubmittedBy, sub.SubmissionDate, sub.Responses, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось сохранить чек-лист", err)
		return fmt.Errorf("сохранение чек-листа: %w", mapError(err))
	}
	return nil
}

func (s *Storage) ExistsSubmission(ctx context.Context, patientID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (
				SELECT 1 FROM daily_checklist_submissions
				WHERE patient_id = $1 AND submission_date = $2)`, patientID, day).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить чек-лист", err)
		return false, fmt.Errorf("проверка чек-листа: %w", err)
	}
	return exists, nil
}

func (s *Storage) ListSubmissions(ctx context.Context, patientID uuid.UUID) ([]*checklist.Submission, error) {
	start := time.Now()
	defer logSlow("list_submissions", start)

	rows, err := s.pool.Query(ctx, `SELECT id, patient_id, submitted_by, submission_date, responses, created_at
				FROM daily_checklist_submissions
				WHERE patient_id = $1
				ORDER BY submission_date DESC, created_at DESC`, patientID)
	if err != nil {
		logger.Error("Repository: Не удалось получить чек-листы", err)
		return nil, fmt.Errorf("получение чек-листов: %w", err)
	}
	defer rows.Close()

	subs := []*checklist.Submission{}
	for rows.Next() {
		sub := &checklist.Submission{}
		if err := rows.Scan(&sub.ID, &sub.PatientID, &sub.SubmittedBy, &sub.SubmissionDate, &sub.Responses, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("сканирование чек-листа: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return subs, nil
}

func (s *Storage) DeleteSubmissions(ctx context.Context, patientID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM daily_checklist_submissions WHERE patient_id = $1`, patientID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить чек-листы", err)
		return 0, fmt.Errorf("удаление чек-листов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
