package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// VerifyMilestoneInput — владелец карьера или грузовика подтверждает gated-этап
type VerifyMilestoneInput struct {
	TripID    string
	ActorID   string
	Role      domain.Role
	Milestone domain.Milestone
}

// VerifyMilestoneUseCase — интерфейс use case подтверждения
type VerifyMilestoneUseCase interface {
	Execute(ctx context.Context, input VerifyMilestoneInput) (*TripView, error)
}
