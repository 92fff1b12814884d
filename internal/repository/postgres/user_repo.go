package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careTracker/internal/logger"
	"careTracker/internal/models/user"
	repo "careTracker/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, username, password_hash, first_name, last_name, email, role, provider_id, patient_id, created_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Role,
		&u.ProviderID,
		&u.PatientID,
		&u.CreatedAt,
	)
	return u, err
}

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer logSlow("create_user", start)

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email,
		string(u.Role), u.ProviderID, u.PatientID, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось создать пользователя", err)
		return fmt.Errorf("создание пользователя: %w", mapError(err))
	}
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer logSlow("update_user", start)

	tag, err := s.pool.Exec(ctx, `UPDATE users
			SET username = $1,
				password_hash = $2,
				first_name = $3,
				last_name = $4,
				email = $5,
				provider_id = $6,
				patient_id = $7
			WHERE id = $8`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, u.ProviderID, u.PatientID, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось обновить пользователя", err)
		return fmt.Errorf("обновление пользователя: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) getUser(ctx context.Context, where string, arg any) (*user.User, error) {
	start := time.Now()
	defer logSlow("get_user", start)

	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, "LOWER(username) = LOWER($1)", username)
}

func (s *Storage) ListUsers(ctx context.Context, filter user.Filter) ([]*user.User, error) {
	start := time.Now()
	defer logSlow("list_users", start)

	w := &whereBuilder{}
	if filter.Role != nil {
		w.add("role = ?", string(*filter.Role))
	}
	if filter.ProviderID != nil {
		w.add("provider_id = ?", *filter.ProviderID)
	}
	if filter.PatientID != nil {
		w.add("patient_id = ?", *filter.PatientID)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+w.sql()+` ORDER BY username`, w.args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования пользователя", zap.Error(err))
			return nil, fmt.Errorf("сканирование пользователя: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return users, nil
}

// DeleteUser удаляет пользователя; связанные записи обрабатываются внешними ключами
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("delete_user", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить пользователя", err)
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	return count, nil
}
