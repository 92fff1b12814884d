package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careTracker/internal/access"
	"careTracker/internal/export"
	"careTracker/internal/logger"
	"careTracker/internal/models/task"
	rep "careTracker/internal/repository"
	"careTracker/internal/results"
	"careTracker/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExportService struct {
	tasks      TaskRepository
	users      UserRepository
	checklists ChecklistRepository
	presenter  *results.Presenter
}

func NewExportService(tasks TaskRepository, users UserRepository, checklists ChecklistRepository, presenter *results.Presenter) *ExportService {
	if presenter == nil {
		presenter = results.NewPresenter(nil)
	}
	return &ExportService{tasks: tasks, users: users, checklists: checklists, presenter: presenter}
}

type ExportFile struct {
	Name string
	Data []byte
}

// ExportPatient выгружает задачи и чек-листы пациента в xlsx
func (s *ExportService) ExportPatient(ctx context.Context, actorID, patientID uuid.UUID) (*ExportFile, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	patient, err := loadPatient(ctx, s.users, patientID)
	if err != nil {
		return nil, err
	}
	if !access.CanExport(actor, patient) {
		return nil, NewForbidden("export")
	}

	tasks, err := s.tasks.ListTasks(ctx, task.Filter{AssignedTo: &patient.ID})
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	taskRows := make([]export.TaskRow, 0, len(tasks))
	for _, t := range tasks {
		row := export.TaskRow{
			Title:       t.Title,
			Type:        t.Type.DisplayName(),
			Difficulty:  t.DifficultyString(),
			Status:      string(t.Status),
			AssignedAt:  t.AssignedAt,
			CompletedAt: t.CompletedAt,
		}
		if t.Status == task.StatusCompleted {
			s.fillResult(ctx, t, &row)
		}
		taskRows = append(taskRows, row)
	}

	subs, err := s.checklists.ListSubmissions(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("получение чек-листов: %w", err)
	}

	names := map[uuid.UUID]string{}
	checklistRows := make([]export.ChecklistRow, 0, len(subs))
	for _, sub := range subs {
		record := scoring.CaptureChecklist(sub.Responses)
		checked := make([]int, 0, len(record.Items))
		for _, item := range record.Items {
			if item.Checked {
				checked = append(checked, item.Number)
			}
		}
		checklistRows = append(checklistRows, export.ChecklistRow{
			Date:        sub.SubmissionDate,
			Checked:     checked,
			Mood:        record.Mood,
			MemoryEntry: record.MemoryEntry,
			SubmittedBy: s.displayName(ctx, names, sub.SubmittedBy),
		})
	}

	data, err := export.Workbook(taskRows, checklistRows)
	if err != nil {
		return nil, fmt.Errorf("выгрузка пациента: %w", err)
	}

	logger.Info("Service: Выгрузка пациента",
		logger.PatientID(patient.ID),
		zap.Int("tasks", len(taskRows)),
		zap.Int("checklists", len(checklistRows)),
	)
	return &ExportFile{
		Name: fmt.Sprintf("%s_%s.xlsx", strings.ReplaceAll(patient.Username, " ", "_"), time.Now().Format("20060102")),
		Data: data,
	}, nil
}

// fillResult дописывает оценку; задача без ответа выгружается без неё
func (s *ExportService) fillResult(ctx context.Context, t *task.Task, row *export.TaskRow) {
	resp, err := s.tasks.GetResponse(ctx, t.ID)
	if err != nil {
		if !errors.Is(err, rep.ErrNotFound) {
			logger.Warn("Service: Не удалось получить ответ для выгрузки",
				logger.TaskID(t.ID), zap.Error(err))
		}
		return
	}
	row.Score = resp.Score

	res, err := s.presenter.Present(t, resp)
	if err != nil {
		return
	}
	row.Analysis = res.Analysis()
}

func (s *ExportService) displayName(ctx context.Context, cache map[uuid.UUID]string, id uuid.UUID) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := id.String()
	if u, err := s.users.GetUserByID(ctx, id); err == nil {
		name = u.FullName()
	}
	cache[id] = name
	return name
}
