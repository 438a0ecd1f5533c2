package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// GetTripInput — запрос карточки рейса
type GetTripInput struct {
	TripID  string
	ActorID string
	Role    domain.Role
}

// GetTripUseCase — интерфейс use case чтения рейса
type GetTripUseCase interface {
	Execute(ctx context.Context, input GetTripInput) (*TripView, error)
}
