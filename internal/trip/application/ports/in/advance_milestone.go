package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// AdvanceMilestoneInput — водитель отмечает следующий этап
type AdvanceMilestoneInput struct {
	TripID    string
	ActorID   string
	Role      domain.Role
	Milestone domain.Milestone
}

// AdvanceMilestoneUseCase — интерфейс use case продвижения рейса водителем
type AdvanceMilestoneUseCase interface {
	Execute(ctx context.Context, input AdvanceMilestoneInput) (*TripView, error)
}
