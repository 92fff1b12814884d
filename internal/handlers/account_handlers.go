package handlers

import (
	"net/http"

	"careTracker/internal/handlers/dto"
	"careTracker/internal/logger"
	"careTracker/internal/models/user"
	"careTracker/internal/service"

	"go.uber.org/zap"
)

type AccountHandler struct {
	AccountService AccountService
}

func NewAccountHandler(accountService AccountService) AccountHandler {
	return AccountHandler{AccountService: accountService}
}

// Login: POST /auth/login
func (s *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request dto.LoginRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	res, err := s.AccountService.Login(r.Context(), request.Username, request.Password)
	if err != nil {
		handleServiceError(w, r, err, "login")
		return
	}

	responseWithPayload(w, http.StatusOK,
		toPayload("access_token", res.Token),
		toPayload("token_type", "Bearer"),
		toPayload("expires_at", res.ExpiresAt),
		toPayload("user", dto.FromUser(res.User)),
	)
}

// Me: GET /me
func (s *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	u, err := s.AccountService.Me(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, "me")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUser(u))
}

// ListUsers: GET /users?role=patient
func (s *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var role *user.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := user.ParseRole(raw)
		if err != nil {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "role"),
				zap.String("value", raw),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		role = &parsed
	}

	users, err := s.AccountService.ListUsers(r.Context(), actor, role)
	if err != nil {
		handleServiceError(w, r, err, "list_users")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUserList(users))
}

// CreateUser: POST /users
func (s *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var request dto.CreateUserRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	created, err := s.AccountService.CreateUser(r.Context(), actor, service.CreateUserRequest{
		Username:   request.Username,
		Password:   request.Password,
		FirstName:  request.FirstName,
		LastName:   request.LastName,
		Email:      request.Email,
		Role:       user.Role(request.Role),
		ProviderID: request.ProviderID,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_user")
		return
	}
	responseWithJSON(w, http.StatusCreated, dto.FromUser(created))
}

// DeleteUser: DELETE /users/{id}
func (s *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := s.AccountService.DeleteUser(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err, "delete_user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword: PUT /users/{id}/password
func (s *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var request dto.ChangePasswordRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	if err := s.AccountService.ChangePassword(r.Context(), actor, id, request.Password); err != nil {
		handleServiceError(w, r, err, "change_password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignCaregiver: PUT /patients/{id}/caregiver
func (s *AccountHandler) AssignCaregiver(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	patientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var request dto.AssignCaregiverRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	caregiver, err := s.AccountService.AssignCaregiver(r.Context(), actor, patientID, request.CaregiverID)
	if err != nil {
		handleServiceError(w, r, err, "assign_caregiver")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUser(caregiver))
}
