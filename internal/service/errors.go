package service

import (
	"errors"
	"fmt"

	rep "careTracker/internal/repository"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAlreadyCompleted   = "TASK_ALREADY_COMPLETED"
	CodeChecklistSubmitted = "CHECKLIST_ALREADY_SUBMITTED"
	CodeNoResultShape      = "NO_RESULT_SHAPE"
	CodeNoResponse         = "NO_RESPONSE"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeVersionConflict    = "VERSION_CONFLICT"
	CodeDuplicate          = "DUPLICATE"
)

type Resource string

const (
	ResourceTask         Resource = "Задача"
	ResourceUser         Resource = "Пользователь"
	ResourcePatient      Resource = "Пациент"
	ResourceCaregiver    Resource = "Сиделка"
	ResourceTemplate     Resource = "Шаблон"
	ResourceNotification Resource = "Уведомление"
	ResourceResponse     Resource = "Ответ"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func (b *BusinessError) Wrap(err error) *BusinessError {
	b.Err = err
	return b
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewForbidden(action string) *BusinessError {
	return NewBusinessError(CodeForbidden, "Недостаточно прав", ToDetail("action", action))
}

func NewUnauthorized(message string) *BusinessError {
	return NewBusinessError(CodeUnauthorized, message)
}

// fromRepo переводит ошибки хранилища в бизнес-ошибки; прочие оборачивает контекстом
func fromRepo(err error, resource Resource, id string, op string) error {
	switch {
	case errors.Is(err, rep.ErrNotFound):
		return NewNotFound(resource, id).Wrap(err)
	case errors.Is(err, rep.ErrVersionConflict):
		return NewBusinessError(CodeVersionConflict, "Данные изменены другим запросом",
			ToDetail("resource", resource), ToDetail("id", id)).Wrap(err)
	case errors.Is(err, rep.ErrDuplicate):
		return NewBusinessError(CodeDuplicate, "Запись уже существует",
			ToDetail("resource", resource)).Wrap(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsCode сообщает, несёт ли цепочка ошибок бизнес-ошибку с кодом code
func IsCode(err error, code string) bool {
	var be *BusinessError
	return errors.As(err, &be) && be.Code == code
}
