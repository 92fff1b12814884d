// Package access содержит проверки прав по ролям: одна функция на операцию.
package access

import (
	"careTracker/internal/models/task"
	"careTracker/internal/models/user"

	"github.com/google/uuid"
)

// CanAssignTasks: врач назначает задачи только своим пациентам
func CanAssignTasks(actor, patient *user.User) bool {
	return actor.Is(user.RoleProvider) && patient.Is(user.RolePatient) && patient.ManagedBy(actor.ID)
}

// CanTakeTask: открыть и выполнить задачу может сам пациент или привязанная сиделка
// того же пациента и того же врача
func CanTakeTask(actor *user.User, t *task.Task) bool {
	switch actor.Role {
	case user.RolePatient:
		return t.AssignedTo == actor.ID
	case user.RoleCaregiver:
		return actor.CaresFor(t.AssignedTo) && actor.ManagedBy(t.AssignedBy)
	}
	return false
}

func CanViewTask(actor *user.User, t *task.Task) bool {
	if actor.Is(user.RoleProvider) {
		return t.AssignedBy == actor.ID
	}
	return CanTakeTask(actor, t)
}

// CanViewResults: сиделка видит результаты привязанного пациента или те, что выполнила сама
func CanViewResults(actor *user.User, t *task.Task) bool {
	switch actor.Role {
	case user.RolePatient:
		return t.AssignedTo == actor.ID
	case user.RoleProvider:
		return t.AssignedBy == actor.ID
	case user.RoleCaregiver:
		if t.CompletedBy != nil && *t.CompletedBy == actor.ID {
			return true
		}
		return actor.CaresFor(t.AssignedTo) && actor.ManagedBy(t.AssignedBy)
	}
	return false
}

func CanDeleteTask(actor *user.User, t *task.Task) bool {
	return actor.Is(user.RoleProvider) && t.AssignedBy == actor.ID
}

// CanManagePatient: администратор или ведущий врач
func CanManagePatient(actor, patient *user.User) bool {
	if !patient.Is(user.RolePatient) {
		return false
	}
	if actor.Is(user.RoleAdmin) {
		return true
	}
	return actor.Is(user.RoleProvider) && patient.ManagedBy(actor.ID)
}

// ChecklistPatient возвращает пациента, за которого актор заполняет ежедневный чек-лист
func ChecklistPatient(actor *user.User) (uuid.UUID, bool) {
	switch actor.Role {
	case user.RolePatient:
		return actor.ID, true
	case user.RoleCaregiver:
		if actor.PatientID != nil {
			return *actor.PatientID, true
		}
	}
	return uuid.Nil, false
}

func CanViewChecklist(actor, patient *user.User) bool {
	if !patient.Is(user.RolePatient) {
		return false
	}
	switch actor.Role {
	case user.RoleProvider:
		return patient.ManagedBy(actor.ID)
	case user.RoleCaregiver:
		return actor.CaresFor(patient.ID)
	case user.RolePatient:
		return actor.ID == patient.ID
	}
	return false
}

func CanResetChecklist(actor, patient *user.User) bool {
	return actor.Is(user.RoleProvider) && patient.Is(user.RolePatient) && patient.ManagedBy(actor.ID)
}

func CanExport(actor, patient *user.User) bool {
	return CanViewChecklist(actor, patient)
}

// BulkScope - область массовых операций над задачами.
// Global у администратора, у врача только его назначения.
type BulkScope struct {
	Global     bool
	ProviderID uuid.UUID
}

func (s BulkScope) Filter() task.Filter {
	if s.Global {
		return task.Filter{}
	}
	id := s.ProviderID
	return task.Filter{AssignedBy: &id}
}

func CanBulkReset(actor *user.User) (BulkScope, bool) {
	switch actor.Role {
	case user.RoleAdmin:
		return BulkScope{Global: true}, true
	case user.RoleProvider:
		return BulkScope{ProviderID: actor.ID}, true
	}
	return BulkScope{}, false
}

// CanCreateUser: администратор создаёт кого угодно, врач только пациентов и сиделок
func CanCreateUser(actor *user.User, role user.Role) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return role.Valid()
	case user.RoleProvider:
		return role == user.RolePatient || role == user.RoleCaregiver
	}
	return false
}

// CanDeleteUser: себя удалить нельзя; врач удаляет только своих пациентов
func CanDeleteUser(actor, target *user.User) bool {
	if actor.ID == target.ID {
		return false
	}
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleProvider:
		return target.Is(user.RolePatient) && target.ManagedBy(actor.ID)
	}
	return false
}

func CanChangePassword(actor, target *user.User) bool {
	if actor.ID == target.ID {
		return true
	}
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleProvider:
		return target.Is(user.RolePatient) && target.ManagedBy(actor.ID)
	}
	return false
}

// CanSeeUser используется при выдаче списков пользователей
func CanSeeUser(actor, target *user.User) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleProvider:
		return target.ID == actor.ID || target.ManagedBy(actor.ID)
	}
	return target.ID == actor.ID
}

func CanManageTemplates(actor *user.User) bool {
	return actor.Is(user.RoleAdmin) || actor.Is(user.RoleProvider)
}
