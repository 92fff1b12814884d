package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careTracker/internal/access"
	"careTracker/internal/logger"
	"careTracker/internal/models/checklist"
	rep "careTracker/internal/repository"
	"careTracker/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChecklistService struct {
	checklists ChecklistRepository
	users      UserRepository
	loc        *time.Location
	now        func() time.Time
}

// NewChecklistService: loc задаёт часовой пояс, в котором считается "сегодня"
func NewChecklistService(checklists ChecklistRepository, users UserRepository, loc *time.Location) *ChecklistService {
	if loc == nil {
		loc = time.UTC
	}
	return &ChecklistService{
		checklists: checklists,
		users:      users,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *ChecklistService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ChecklistService) today() time.Time {
	return checklist.Day(s.now(), s.loc)
}

type ChecklistToday struct {
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	CanSubmit bool      `json:"can_submit"`
}

type ChecklistEntry struct {
	*checklist.Submission
	Record scoring.ChecklistRecord `json:"record"`
}

// CanSubmitToday сообщает, что за сегодня у пациента ещё нет чек-листа
func (s *ChecklistService) CanSubmitToday(ctx context.Context, patientID uuid.UUID) (bool, error) {
	exists, err := s.checklists.ExistsSubmission(ctx, patientID, s.today())
	if err != nil {
		return false, fmt.Errorf("проверка чек-листа за день: %w", err)
	}
	return !exists, nil
}

func (s *ChecklistService) Today(ctx context.Context, actorID uuid.UUID) (*ChecklistToday, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	patientID, ok := access.ChecklistPatient(actor)
	if !ok {
		return nil, NewForbidden("submit_checklist")
	}
	can, err := s.CanSubmitToday(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &ChecklistToday{
		PatientID: patientID,
		Date:      s.today().Format(time.DateOnly),
		CanSubmit: can,
	}, nil
}

// SubmitChecklist сохраняет ежедневный чек-лист пациента или привязанной сиделки.
// Одновременные отправки разрешает ограничение уникальности хранилища.
func (s *ChecklistService) SubmitChecklist(ctx context.Context, actorID uuid.UUID, responses map[string]any) (*checklist.Submission, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	patientID, ok := access.ChecklistPatient(actor)
	if !ok {
		return nil, NewForbidden("submit_checklist")
	}

	day := s.today()
	can, err := s.CanSubmitToday(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, alreadySubmitted(patientID, day)
	}

	record := scoring.CaptureChecklist(responses)
	sub := checklist.New(patientID, actor.ID, day, record.ToMap())
	if err := s.checklists.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, rep.ErrDuplicate) {
			return nil, alreadySubmitted(patientID, day).Wrap(err)
		}
		return nil, fmt.Errorf("сохранение чек-листа: %w", err)
	}

	logger.Info("Service: Ежедневный чек-лист сохранён",
		logger.PatientID(patientID),
		zap.String("submitted_by", actor.ID.String()),
		zap.Int("checked", record.CheckedCount()),
	)
	return sub, nil
}

func alreadySubmitted(patientID uuid.UUID, day time.Time) *BusinessError {
	return NewBusinessError(CodeChecklistSubmitted, "Чек-лист за сегодня уже заполнен",
		ToDetail("patient_id", patientID.String()),
		ToDetail("date", day.Format(time.DateOnly)),
	)
}

func (s *ChecklistService) ChecklistResults(ctx context.Context, actorID, patientID uuid.UUID) ([]*ChecklistEntry, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	patient, err := loadPatient(ctx, s.users, patientID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewChecklist(actor, patient) {
		return nil, NewForbidden("view_checklist")
	}

	subs, err := s.checklists.ListSubmissions(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("получение чек-листов: %w", err)
	}

	entries := make([]*ChecklistEntry, 0, len(subs))
	for _, sub := range subs {
		entries = append(entries, &ChecklistEntry{
			Submission: sub,
			Record:     scoring.CaptureChecklist(sub.Responses),
		})
	}
	return entries, nil
}

func (s *ChecklistService) ResetChecklist(ctx context.Context, actorID, patientID uuid.UUID) (int, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return 0, err
	}
	patient, err := loadPatient(ctx, s.users, patientID)
	if err != nil {
		return 0, err
	}
	if !access.CanResetChecklist(actor, patient) {
		return 0, NewForbidden("reset_checklist")
	}

	n, err := s.checklists.DeleteSubmissions(ctx, patient.ID)
	if err != nil {
		return 0, fmt.Errorf("сброс чек-листов: %w", err)
	}
	logger.Info("Service: Чек-листы пациента сброшены",
		logger.PatientID(patient.ID),
		zap.Int("count", n),
	)
	return n, nil
}
