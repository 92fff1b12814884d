package inmemory

import (
	"context"
	"sort"
	"time"

	"careTracker/internal/models/checklist"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
)

// CreateSubmission проверяет уникальность (пациент, дата) под той же блокировкой, что и вставка
func (s *Storage) CreateSubmission(ctx context.Context, sub *checklist.Submission) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.existsLocked(sub.PatientID, sub.SubmissionDate) {
		return repo.ErrDuplicate
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.submissions[sub.ID] = cloneSubmission(sub)
	return nil
}

func (s *Storage) existsLocked(patientID uuid.UUID, day time.Time) bool {
	for _, sub := range s.submissions {
		if sub.PatientID == patientID && sub.SubmissionDate.Equal(day) {
			return true
		}
	}
	return false
}

func (s *Storage) ExistsSubmission(ctx context.Context, patientID uuid.UUID, day time.Time) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.existsLocked(patientID, day), nil
}

func (s *Storage) ListSubmissions(ctx context.Context, patientID uuid.UUID) ([]*checklist.Submission, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*checklist.Submission{}
	for _, sub := range s.submissions {
		if sub.PatientID == patientID {
			res = append(res, cloneSubmission(sub))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SubmissionDate.Equal(res[j].SubmissionDate) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].SubmissionDate.After(res[j].SubmissionDate)
	})
	return res, nil
}

func (s *Storage) DeleteSubmissions(ctx context.Context, patientID uuid.UUID) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	count := 0
	for id, sub := range s.submissions {
		if sub.PatientID == patientID {
			delete(s.submissions, id)
			count++
		}
	}
	return count, nil
}
