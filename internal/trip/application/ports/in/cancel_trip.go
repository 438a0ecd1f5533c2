package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// CancelTripInput — отмена рейса стороной заявки
type CancelTripInput struct {
	TripID  string
	ActorID string
	Role    domain.Role
	Reason  string
}

// CancelTripUseCase — интерфейс use case отмены
type CancelTripUseCase interface {
	Execute(ctx context.Context, input CancelTripInput) (*TripView, error)
}
