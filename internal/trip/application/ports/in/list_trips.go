package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// ListTripsInput — список рейсов участника. Пустая Category — все вкладки.
type ListTripsInput struct {
	ActorID  string
	Role     domain.Role
	Category domain.Category
	Limit    int
}

// ListTripsOutput — рейсы и количество по каждой вкладке
type ListTripsOutput struct {
	Trips  []*TripView             `json:"trips"`
	Counts map[domain.Category]int `json:"counts"`
}

// ListTripsUseCase — интерфейс use case списка рейсов
type ListTripsUseCase interface {
	Execute(ctx context.Context, input ListTripsInput) (*ListTripsOutput, error)
}
