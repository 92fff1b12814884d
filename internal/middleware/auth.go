package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"careTracker/internal/auth"
	"careTracker/internal/logger"
	"careTracker/internal/models/user"

	"github.com/google/uuid"
)

const UserIDKey contextKey = "user_id"
const UserRoleKey contextKey = "user_role"

type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authenticate проверяет Bearer-токен и кладёт id и роль пользователя в контекст
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется заголовок Authorization", nil)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Неверный формат авторизации", nil)
				return
			}

			claims, err := tokens.Validate(strings.TrimSpace(token))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Срок действия токена истёк", nil)
				case errors.Is(err, auth.ErrInvalidToken):
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Неверный токен", nil)
				default:
					logger.Error("HTTP: Ошибка проверки токена", err,
						logger.RequestID(GetRequestID(r.Context())))
					writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Ошибка аутентификации", nil)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, user.Role(claims.Role))))
		})
	}
}

// RequireRole пропускает только пользователей с одной из ролей из токена.
// Окончательную проверку прав делает сервис по актуальной учётной записи.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Пользователь не аутентифицирован", nil)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Недостаточно прав", nil)
		})
	}
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func GetUserRole(ctx context.Context) (user.Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(user.Role)
	return role, ok
}

// WithUser кладёт пользователя в контекст так же, как Authenticate
func WithUser(ctx context.Context, id uuid.UUID, role user.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, UserRoleKey, role)
}
