package checklist

import (
	"time"

	"github.com/google/uuid"
)

// Submission - ежедневный чек-лист пациента, не больше одного за календарный день
type Submission struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	PatientID      uuid.UUID      `json:"patient_id" db:"patient_id"`
	SubmittedBy    uuid.UUID      `json:"submitted_by" db:"submitted_by"`
	SubmissionDate time.Time      `json:"submission_date" db:"submission_date"`
	Responses      map[string]any `json:"responses" db:"responses"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Day приводит момент времени к календарной дате в часовом поясе loc.
// Дата хранится как полночь UTC, так же её возвращает колонка DATE в PostgreSQL.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func New(patientID, submittedBy uuid.UUID, day time.Time, responses map[string]any) *Submission {
	return &Submission{
		ID:             uuid.New(),
		PatientID:      patientID,
		SubmittedBy:    submittedBy,
		SubmissionDate: day,
		Responses:      responses,
		CreatedAt:      time.Now(),
	}
}
