package usecase

import (
	"context"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

// AdvanceMilestoneService реализует AdvanceMilestoneUseCase
type AdvanceMilestoneService struct {
	tripRepo out.TripRepository
	recorder out.TransitionRecorder
	announcer
	now func() time.Time
}

// NewAdvanceMilestoneService создает сервис продвижения рейса водителем
func NewAdvanceMilestoneService(
	tripRepo out.TripRepository,
	publisher out.EventPublisher,
	notifier out.TripNotifier,
	recorder out.TransitionRecorder,
	log *logger.Logger,
) *AdvanceMilestoneService {
	return &AdvanceMilestoneService{
		tripRepo:  tripRepo,
		recorder:  recorder,
		announcer: announcer{publisher: publisher, notifier: notifier, log: log},
		now:       time.Now,
	}
}

// Execute добавляет следующий этап рейса от имени водителя
func (s *AdvanceMilestoneService) Execute(ctx context.Context, input in.AdvanceMilestoneInput) (*in.TripView, error) {
	var event domain.MilestoneEvent
	trip, err := s.tripRepo.Mutate(ctx, input.TripID, func(trip *domain.Trip) error {
		if err := ensureParticipant(trip, input.ActorID, input.Role); err != nil {
			return err
		}
		if err := domain.ValidateAdvance(trip, input.Milestone, input.Role); err != nil {
			return err
		}
		event = trip.AppendMilestone(input.Milestone, s.now())
		return nil
	})
	if err != nil {
		s.recorder.RecordRejection("advance", rejectionReason(err))
		s.logRejection("milestone_advance", map[string]any{
			"milestone": input.Milestone,
			"actor_id":  input.ActorID,
			"role":      input.Role,
		}, input.TripID, err)
		return nil, err
	}

	s.recorder.RecordTransition(event.Status, input.Role)
	s.log.Info(logger.Entry{
		Action:  "milestone_advanced",
		Message: string(event.Status),
		TripID:  trip.ID,
		Additional: map[string]any{
			"driver_id": input.ActorID,
			"at":        event.Timestamp,
		},
	})

	now := s.now()
	s.announce(ctx, out.EventMilestoneAdvanced, eventData(trip, input.ActorID, input.Role, now), trip,
		event.Status.Label(), now)

	return in.BuildTripView(trip, input.Role, now), nil
}
