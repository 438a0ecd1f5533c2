package out

import (
	"context"

	"buildorite/internal/trip/domain"
)

// MutateFunc меняет рейс внутри транзакции. Ошибка откатывает изменения.
type MutateFunc func(trip *domain.Trip) error

// TripFilter — выборка рейсов участника. Пустая Category — все вкладки.
type TripFilter struct {
	Role     domain.Role
	UserID   string
	Category domain.Category
	Limit    int
}

// TripRepository — интерфейс репозитория рейсов
type TripRepository interface {
	// Create сохраняет новый рейс вместе с начальной историей
	Create(ctx context.Context, trip *domain.Trip) error

	// FindByID возвращает рейс с полной историей этапов
	// Возвращает domain.ErrTripNotFound если не найден
	FindByID(ctx context.Context, tripID string) (*domain.Trip, error)

	// FindByRequestID возвращает рейс по заявке (для идемпотентного создания)
	FindByRequestID(ctx context.Context, requestID string) (*domain.Trip, error)

	// ListByParticipant возвращает последние рейсы участника.
	// Фильтр по категории применяется до лимита.
	ListByParticipant(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// CountByCategory считает все рейсы участника по вкладкам
	CountByCategory(ctx context.Context, role domain.Role, userID string) (map[domain.Category]int, error)

	// Mutate блокирует рейс, вызывает fn и сохраняет результат.
	// Конкурентные вызовы для одного рейса выполняются последовательно.
	Mutate(ctx context.Context, tripID string, fn MutateFunc) (*domain.Trip, error)
}
