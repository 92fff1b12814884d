package handlers

import (
	"net/http"

	"careTracker/internal/handlers/dto"

	"github.com/google/uuid"
)

type ChecklistHandler struct {
	ChecklistService ChecklistService
}

func NewChecklistHandler(checklistService ChecklistService) ChecklistHandler {
	return ChecklistHandler{ChecklistService: checklistService}
}

// Today: GET /checklist/today
func (s *ChecklistHandler) Today(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	today, err := s.ChecklistService.Today(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, "checklist_today")
		return
	}
	responseWithJSON(w, http.StatusOK, today)
}

// Submit: POST /checklist
func (s *ChecklistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var request dto.SubmitRequest
	if !decodeJSON(w, r, &request, true) {
		return
	}
	if request.Responses == nil {
		request.Responses = map[string]any{}
	}

	sub, err := s.ChecklistService.SubmitChecklist(r.Context(), actor, request.Responses)
	if err != nil {
		handleServiceError(w, r, err, "submit_checklist")
		return
	}
	responseWithJSON(w, http.StatusCreated, sub)
}

// Results: GET /checklist/results?patient_id=
func (s *ChecklistHandler) Results(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "неверный идентификатор patient_id")
		return
	}

	entries, err := s.ChecklistService.ChecklistResults(r.Context(), actor, patientID)
	if err != nil {
		handleServiceError(w, r, err, "checklist_results")
		return
	}
	responseWithJSON(w, http.StatusOK, entries)
}

// Reset: DELETE /patients/{id}/checklist
func (s *ChecklistHandler) Reset(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	n, err := s.ChecklistService.ResetChecklist(r.Context(), actor, patientID)
	if err != nil {
		handleServiceError(w, r, err, "reset_checklist")
		return
	}
	responseWithPayload(w, http.StatusOK, toPayload("deleted", n))
}
