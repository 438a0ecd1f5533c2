package in

import (
	"context"
	"time"

	"buildorite/internal/trip/domain"
)

// CreateTripInput — заявка принята и водитель назначен
type CreateTripInput struct {
	RequestID        string
	MineID           string
	MineOwnerID      string
	TruckOwnerID     string
	DriverID         string
	TruckID          string
	Material         string
	Quantity         float64
	Price            float64
	DeliveryMethod   domain.DeliveryMethod
	DeliveryLocation string
	ScheduledAt      *time.Time
}

// CreateTripUseCase — интерфейс use case создания рейса
type CreateTripUseCase interface {
	Execute(ctx context.Context, input CreateTripInput) (*domain.Trip, error)
}
