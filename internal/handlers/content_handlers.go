package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"careTracker/internal/handlers/dto"
	"careTracker/internal/logger"
	"careTracker/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TemplateHandler struct {
	TemplateService TemplateService
}

func NewTemplateHandler(templateService TemplateService) TemplateHandler {
	return TemplateHandler{TemplateService: templateService}
}

// List: GET /templates
func (s *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := s.TemplateService.ListTemplates(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "list_templates")
		return
	}
	responseWithJSON(w, http.StatusOK, templates)
}

// Create: POST /templates
func (s *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var request dto.CreateTemplateRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	tpl, err := s.TemplateService.CreateTemplate(r.Context(), actor, service.CreateTemplateRequest{
		Name:        request.Name,
		Description: request.Description,
		Questions:   request.Questions,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_template")
		return
	}
	responseWithJSON(w, http.StatusCreated, tpl)
}

type NotificationHandler struct {
	NotificationService NotificationService
}

func NewNotificationHandler(notificationService NotificationService) NotificationHandler {
	return NotificationHandler{NotificationService: notificationService}
}

// List: GET /notifications
func (s *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	list, err := s.NotificationService.ListNotifications(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, "list_notifications")
		return
	}
	responseWithJSON(w, http.StatusOK, list)
}

// MarkRead: POST /notifications/{id}/read
func (s *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := s.NotificationService.MarkRead(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err, "mark_read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ExportHandler struct {
	ExportService ExportService
}

func NewExportHandler(exportService ExportService) ExportHandler {
	return ExportHandler{ExportService: exportService}
}

// Export: GET /patients/{id}/export
func (s *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	file, err := s.ExportService.ExportPatient(r.Context(), actor, patientID)
	if err != nil {
		handleServiceError(w, r, err, "export")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logger.Warn("HTTP: Не удалось отправить выгрузку", zap.Error(err))
	}
}
