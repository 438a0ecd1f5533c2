package usecase

import (
	"context"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

// CancelTripService реализует CancelTripUseCase
type CancelTripService struct {
	tripRepo out.TripRepository
	recorder out.TransitionRecorder
	announcer
	now func() time.Time
}

// NewCancelTripService создает сервис отмены рейса
func NewCancelTripService(
	tripRepo out.TripRepository,
	publisher out.EventPublisher,
	notifier out.TripNotifier,
	recorder out.TransitionRecorder,
	log *logger.Logger,
) *CancelTripService {
	return &CancelTripService{
		tripRepo:  tripRepo,
		recorder:  recorder,
		announcer: announcer{publisher: publisher, notifier: notifier, log: log},
		now:       time.Now,
	}
}

// Execute отменяет рейс до подтверждения погрузки
func (s *CancelTripService) Execute(ctx context.Context, input in.CancelTripInput) (*in.TripView, error) {
	trip, err := s.tripRepo.Mutate(ctx, input.TripID, func(trip *domain.Trip) error {
		if err := ensureParticipant(trip, input.ActorID, input.Role); err != nil {
			return err
		}
		if err := domain.ValidateCancel(trip, input.Role, input.Reason); err != nil {
			return err
		}
		trip.MarkCanceled(input.Reason, s.now())
		return nil
	})
	if err != nil {
		s.recorder.RecordRejection("cancel", rejectionReason(err))
		s.logRejection("trip_cancel", map[string]any{
			"actor_id": input.ActorID,
			"role":     input.Role,
		}, input.TripID, err)
		return nil, err
	}

	s.recorder.RecordStatusChange(trip.Status)
	s.log.Info(logger.Entry{
		Action:  "trip_canceled",
		Message: *trip.CancelReason,
		TripID:  trip.ID,
		Additional: map[string]any{
			"canceled_by": input.ActorID,
			"role":        input.Role,
		},
	})

	now := s.now()
	s.announce(ctx, out.EventTripCanceled, eventData(trip, input.ActorID, input.Role, now), trip,
		"Trip canceled", now)

	return in.BuildTripView(trip, input.Role, now), nil
}
