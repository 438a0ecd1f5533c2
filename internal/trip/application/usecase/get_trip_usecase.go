package usecase

import (
	"context"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
)

// GetTripService реализует GetTripUseCase
type GetTripService struct {
	tripRepo out.TripRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewGetTripService создает сервис чтения рейса
func NewGetTripService(tripRepo out.TripRepository, log *logger.Logger) *GetTripService {
	return &GetTripService{tripRepo: tripRepo, log: log, now: time.Now}
}

// Execute возвращает рейс с производным состоянием для роли участника
func (s *GetTripService) Execute(ctx context.Context, input in.GetTripInput) (*in.TripView, error) {
	trip, err := s.tripRepo.FindByID(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(trip, input.ActorID, input.Role); err != nil {
		s.log.Warn(logger.Entry{
			Action:  "trip_view_denied",
			Message: err.Error(),
			TripID:  input.TripID,
			Additional: map[string]any{
				"actor_id": input.ActorID,
				"role":     input.Role,
			},
		})
		return nil, err
	}
	return in.BuildTripView(trip, input.Role, s.now()), nil
}
