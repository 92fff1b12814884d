package handlers

import (
	"errors"
	"net/http"

	"careTracker/internal/logger"
	"careTracker/internal/middleware"
	"careTracker/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, r *http.Request, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}
	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		logger.RequestID(middleware.GetRequestID(r.Context())),
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
	)

	responseWithPayload(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// handleServiceError отвечает бизнес-ошибкой или логирует прочие как 500
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, r, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		logger.RequestID(middleware.GetRequestID(r.Context())),
		zap.String("client_ip", r.RemoteAddr),
	)
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound, service.CodeNoResponse:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeAlreadyCompleted, service.CodeChecklistSubmitted,
		service.CodeVersionConflict, service.CodeDuplicate:
		return http.StatusConflict
	case service.CodeNoResultShape:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
