package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careTracker/internal/access"
	"careTracker/internal/auth"
	"careTracker/internal/logger"
	"careTracker/internal/models/user"
	rep "careTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AccountService struct {
	users  UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenService
	now    func() time.Time
}

func NewAccountService(users UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenService) *AccountService {
	return &AccountService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

type LoginResult struct {
	Token     string     `json:"access_token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

type CreateUserRequest struct {
	Username   string
	Password   string
	FirstName  string
	LastName   string
	Email      string
	Role       user.Role
	ProviderID *uuid.UUID
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	invalid := NewUnauthorized("Неверный логин или пароль")

	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			logger.Info("Service: Неудачная попытка входа", zap.String("username", u.Username))
			return nil, invalid
		}
		return nil, err
	}

	token, expires, err := s.tokens.Generate(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *AccountService) Me(ctx context.Context, actorID uuid.UUID) (*user.User, error) {
	return loadActor(ctx, s.users, actorID)
}

// CreateUser: врач создаёт пациентов и сиделок, которые сразу привязываются к нему
func (s *AccountService) CreateUser(ctx context.Context, actorID uuid.UUID, req CreateUserRequest) (*user.User, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, NewValidationError("role", fmt.Sprintf("неизвестная роль %q", req.Role))
	}
	if !access.CanCreateUser(actor, req.Role) {
		return nil, NewForbidden("create_user")
	}

	u := &user.User{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Role:      req.Role,
		CreatedAt: s.now(),
	}
	if u.Username == "" {
		return nil, NewValidationError("username", "обязательное поле")
	}

	switch {
	case actor.Is(user.RoleProvider):
		u.ProviderID = &actor.ID
	case req.ProviderID != nil && (req.Role == user.RolePatient || req.Role == user.RoleCaregiver):
		provider, err := s.users.GetUserByID(ctx, *req.ProviderID)
		if err != nil {
			return nil, fromRepo(err, ResourceUser, req.ProviderID.String(), "получение врача")
		}
		if !provider.Is(user.RoleProvider) {
			return nil, NewValidationError("provider_id", "пользователь не является врачом")
		}
		u.ProviderID = &provider.ID
	}

	if err := s.setPassword(u, req.Password); err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, rep.ErrDuplicate) {
			return nil, NewBusinessError(CodeDuplicate, "Логин уже занят", ToDetail("username", u.Username)).Wrap(err)
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь создан",
		logger.UserID(u.ID),
		zap.String("role", string(u.Role)),
		zap.String("created_by", actor.ID.String()),
	)
	return u, nil
}

func (s *AccountService) setPassword(u *user.User, password string) error {
	if len(password) < auth.MinPasswordLength {
		return NewValidationError("password", fmt.Sprintf("не короче %d символов", auth.MinPasswordLength))
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// ListUsers возвращает видимых актору пользователей; role сужает выборку
func (s *AccountService) ListUsers(ctx context.Context, actorID uuid.UUID, role *user.Role) ([]*user.User, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}

	filter := user.Filter{Role: role}
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleProvider:
		filter.ProviderID = &actor.ID
	default:
		if role != nil && *role != actor.Role {
			return []*user.User{}, nil
		}
		return []*user.User{actor}, nil
	}

	users, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}

	visible := make([]*user.User, 0, len(users))
	for _, u := range users {
		if access.CanSeeUser(actor, u) {
			visible = append(visible, u)
		}
	}
	return visible, nil
}

func (s *AccountService) DeleteUser(ctx context.Context, actorID, targetID uuid.UUID) error {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return fromRepo(err, ResourceUser, targetID.String(), "получение пользователя")
	}
	if !access.CanDeleteUser(actor, target) {
		return NewForbidden("delete_user")
	}

	if err := s.users.DeleteUser(ctx, target.ID); err != nil {
		return fromRepo(err, ResourceUser, target.ID.String(), "удаление пользователя")
	}
	logger.Info("Service: Пользователь удалён",
		logger.UserID(target.ID),
		zap.String("deleted_by", actor.ID.String()),
	)
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, actorID, targetID uuid.UUID, password string) error {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return fromRepo(err, ResourceUser, targetID.String(), "получение пользователя")
	}
	if !access.CanChangePassword(actor, target) {
		return NewForbidden("change_password")
	}

	if err := s.setPassword(target, password); err != nil {
		return err
	}
	if err := s.users.UpdateUser(ctx, target); err != nil {
		return fromRepo(err, ResourceUser, target.ID.String(), "смена пароля")
	}
	return nil
}

// AssignCaregiver привязывает сиделку к пациенту и его врачу
func (s *AccountService) AssignCaregiver(ctx context.Context, actorID, patientID, caregiverID uuid.UUID) (*user.User, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	patient, err := loadPatient(ctx, s.users, patientID)
	if err != nil {
		return nil, err
	}
	if !access.CanManagePatient(actor, patient) {
		return nil, NewForbidden("assign_caregiver")
	}

	caregiver, err := s.users.GetUserByID(ctx, caregiverID)
	if err != nil {
		return nil, fromRepo(err, ResourceCaregiver, caregiverID.String(), "получение сиделки")
	}
	if !caregiver.Is(user.RoleCaregiver) {
		return nil, NewValidationError("caregiver_id", "пользователь не является сиделкой")
	}
	if actor.Is(user.RoleProvider) && caregiver.ProviderID != nil && !caregiver.ManagedBy(actor.ID) {
		return nil, NewForbidden("assign_caregiver")
	}

	caregiver.PatientID = &patient.ID
	caregiver.ProviderID = patient.ProviderID
	if err := s.users.UpdateUser(ctx, caregiver); err != nil {
		return nil, fromRepo(err, ResourceCaregiver, caregiver.ID.String(), "привязка сиделки")
	}

	logger.Info("Service: Сиделка привязана к пациенту",
		zap.String("caregiver_id", caregiver.ID.String()),
		logger.PatientID(patient.ID),
	)
	return caregiver, nil
}

// EnsureAdmin создаёт первого администратора, если хранилище пусто
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	admin := &user.User{
		ID:        uuid.New(),
		Username:  username,
		Role:      user.RoleAdmin,
		CreatedAt: s.now(),
	}
	if err := s.setPassword(admin, password); err != nil {
		return false, err
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, rep.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("создание администратора: %w", err)
	}

	logger.Info("Service: Создан администратор по умолчанию", zap.String("username", username))
	return true, nil
}
