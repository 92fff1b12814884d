package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"careTracker/internal/logger"
	"careTracker/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator называет поля в ошибках по json-тегам
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON читает и валидирует тело запроса; при ошибке ответ уже записан.
// Пустое тело допустимо, если allowEmpty.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if r.ContentLength == 0 && allowEmpty {
		return validateRequest(w, r, dst)
	}

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return validateRequest(w, r, dst)
		}
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}
	return validateRequest(w, r, dst)
}

func validateRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonField(fe.Namespace())] = describeRule(fe)
	}

	logger.Warn("HTTP: Ошибка валидации",
		zap.Any("fields", fields),
		zap.String("client_ip", r.RemoteAddr))

	responseWithPayload(w, http.StatusBadRequest,
		toPayload("error", "VALIDATION_ERROR"),
		toPayload("message", "Ошибка валидации запроса"),
		toPayload("details", fields),
	)
	return false
}

// jsonField убирает имя структуры: "BulkAssignRequest.tasks[0].difficulty" -> "tasks[0].difficulty"
func jsonField(namespace string) string {
	if _, field, ok := strings.Cut(namespace, "."); ok {
		return field
	}
	return namespace
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		return fmt.Sprintf("минимум %s", fe.Param())
	case "max":
		return fmt.Sprintf("максимум %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", fe.Param())
	case "email":
		return "неверный email"
	}
	return fe.Tag()
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.String("param", param),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверный идентификатор "+param)
		return uuid.Nil, false
	}
	return id, true
}

// actorID берёт пользователя, положенного в контекст middleware.Authenticate
func actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "пользователь не аутентифицирован")
		return uuid.Nil, false
	}
	return id, true
}
