package repository

import "errors"

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrVersionConflict = errors.New("конфликт версий")
	// ErrDuplicate - нарушено ограничение уникальности (логин, чек-лист за день)
	ErrDuplicate = errors.New("запись уже существует")
)
