package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sprintap/user-module/internal/domain/model"
)

// UserRepository — интерфейс доступа к локальной проекции пользователей.
// Проекция ведётся best-effort вслед за мутациями в Keycloak.
type UserRepository interface {
	// Insert создаёт запись проекции.
	Insert(ctx context.Context, u *model.UserProjection) error
	// GetByID возвращает запись по Keycloak user ID.
	GetByID(ctx context.Context, userID string) (*model.UserProjection, error)
	// SetActive обновляет флаг активности. Остальные поля проекции
	// после создания не обновляются. ErrNotFound — записи нет.
	SetActive(ctx context.Context, userID string, active bool) error
	// Count возвращает количество записей проекции.
	Count(ctx context.Context) (int, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий проекции пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `user_id, username, email, full_name, is_active, created_at, updated_at`

func (r *userRepo) Insert(ctx context.Context, u *model.UserProjection) error {
	query := `
		INSERT INTO users (user_id, username, email, full_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.UserID, u.Username, u.Email, u.FullName, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания проекции пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*model.UserProjection, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1`, userColumns)

	u := &model.UserProjection{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.UserID, &u.Username, &u.Email, &u.FullName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекции пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) SetActive(ctx context.Context, userID string, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE user_id = $1`,
		userID, active,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага активности: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта проекций пользователей: %w", err)
	}
	return count, nil
}
