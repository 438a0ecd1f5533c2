package usecase

import (
	"context"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

// VerifyMilestoneService реализует VerifyMilestoneUseCase
type VerifyMilestoneService struct {
	tripRepo out.TripRepository
	recorder out.TransitionRecorder
	announcer
	now func() time.Time
}

// NewVerifyMilestoneService создает сервис подтверждения gated-этапов
func NewVerifyMilestoneService(
	tripRepo out.TripRepository,
	publisher out.EventPublisher,
	notifier out.TripNotifier,
	recorder out.TransitionRecorder,
	log *logger.Logger,
) *VerifyMilestoneService {
	return &VerifyMilestoneService{
		tripRepo:  tripRepo,
		recorder:  recorder,
		announcer: announcer{publisher: publisher, notifier: notifier, log: log},
		now:       time.Now,
	}
}

// Execute подтверждает pickup_verified или delivery_verified.
// Подтверждение delivery_verified завершает рейс.
func (s *VerifyMilestoneService) Execute(ctx context.Context, input in.VerifyMilestoneInput) (*in.TripView, error) {
	var event domain.MilestoneEvent
	trip, err := s.tripRepo.Mutate(ctx, input.TripID, func(trip *domain.Trip) error {
		if err := ensureParticipant(trip, input.ActorID, input.Role); err != nil {
			return err
		}
		if err := domain.ValidateVerify(trip, input.Milestone, input.Role); err != nil {
			return err
		}
		event = trip.AppendMilestone(input.Milestone, s.now())
		return nil
	})
	if err != nil {
		s.recorder.RecordRejection("verify", rejectionReason(err))
		s.logRejection("milestone_verify", map[string]any{
			"milestone": input.Milestone,
			"actor_id":  input.ActorID,
			"role":      input.Role,
		}, input.TripID, err)
		return nil, err
	}

	s.recorder.RecordTransition(event.Status, input.Role)
	if trip.Status == domain.TripStatusCompleted {
		s.recorder.RecordStatusChange(trip.Status)
	}
	s.log.Info(logger.Entry{
		Action:  "milestone_verified",
		Message: string(event.Status),
		TripID:  trip.ID,
		Additional: map[string]any{
			"verifier_id": input.ActorID,
			"role":        input.Role,
			"trip_status": trip.Status,
		},
	})

	now := s.now()
	s.announce(ctx, out.EventMilestoneVerified, eventData(trip, input.ActorID, input.Role, now), trip,
		event.Status.Label(), now)

	return in.BuildTripView(trip, input.Role, now), nil
}
