package user

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound пользователь не найден
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive пользователь неактивен или забанен
	ErrUserInactive = errors.New("user is inactive")
)

// Repository — проверка пользователей при входе в API
type Repository interface {
	// FindByID находит пользователя по ID
	// Возвращает ErrUserNotFound если не найден
	FindByID(ctx context.Context, userID string) (*User, error)
}

// EnsureActive проверяет, что пользователь существует, активен и имеет роль из токена
func EnsureActive(ctx context.Context, repo Repository, userID, role string) (*User, error) {
	u, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() || !u.HasRole(role) {
		return nil, ErrUserInactive
	}
	return u, nil
}
