package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const RoleAdmin Role = "admin"
const RoleProvider Role = "provider"
const RoleCaregiver Role = "caregiver"
const RolePatient Role = "patient"

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProvider, RoleCaregiver, RolePatient:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("неизвестная роль %q", s)
	}
	return r, nil
}

// User объединяет учётную запись и профиль.
// ProviderID у пациента указывает на ведущего врача, у сиделки на врача её пациента.
// PatientID заполняется только у сиделки.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Email        string     `json:"email" db:"email"`
	Role         Role       `json:"role" db:"role"`
	ProviderID   *uuid.UUID `json:"provider_id,omitempty" db:"provider_id"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) Is(role Role) bool {
	return u != nil && u.Role == role
}

// ManagedBy сообщает, ведёт ли врач providerID этого пользователя
func (u *User) ManagedBy(providerID uuid.UUID) bool {
	return u.ProviderID != nil && *u.ProviderID == providerID
}

// CaresFor сообщает, привязана ли сиделка к пациенту patientID
func (u *User) CaresFor(patientID uuid.UUID) bool {
	return u.Role == RoleCaregiver && u.PatientID != nil && *u.PatientID == patientID
}

// Filter отбирает пользователей в списках; пустые поля не ограничивают выборку
type Filter struct {
	Role       *Role
	ProviderID *uuid.UUID
	PatientID  *uuid.UUID
}

func (f Filter) Match(u *User) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.ProviderID != nil && (u.ProviderID == nil || *u.ProviderID != *f.ProviderID) {
		return false
	}
	if f.PatientID != nil && (u.PatientID == nil || *u.PatientID != *f.PatientID) {
		return false
	}
	return true
}
