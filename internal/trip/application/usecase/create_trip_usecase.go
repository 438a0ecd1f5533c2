package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"

	"github.com/google/uuid"
)

// CreateTripService реализует CreateTripUseCase
type CreateTripService struct {
	tripRepo out.TripRepository
	recorder out.TransitionRecorder
	announcer
	now func() time.Time
}

// NewCreateTripService создает сервис создания рейса по назначенной заявке
func NewCreateTripService(
	tripRepo out.TripRepository,
	publisher out.EventPublisher,
	notifier out.TripNotifier,
	recorder out.TransitionRecorder,
	log *logger.Logger,
) *CreateTripService {
	return &CreateTripService{
		tripRepo:  tripRepo,
		recorder:  recorder,
		announcer: announcer{publisher: publisher, notifier: notifier, log: log},
		now:       time.Now,
	}
}

// Execute создает рейс в статусе trip_assigned.
// Повторное сообщение по той же заявке возвращает существующий рейс.
func (s *CreateTripService) Execute(ctx context.Context, input in.CreateTripInput) (*domain.Trip, error) {
	existing, err := s.tripRepo.FindByRequestID(ctx, input.RequestID)
	switch {
	case err == nil:
		s.log.Info(logger.Entry{
			Action:  "trip_already_exists",
			Message: input.RequestID,
			TripID:  existing.ID,
		})
		return existing, nil
	case !errors.Is(err, domain.ErrTripNotFound):
		return nil, fmt.Errorf("find trip by request: %w", err)
	}

	now := s.now()
	trip, err := domain.NewTrip(domain.NewTripParams{
		ID:               uuid.New().String(),
		RequestID:        input.RequestID,
		MineID:           input.MineID,
		MineOwnerID:      input.MineOwnerID,
		TruckOwnerID:     input.TruckOwnerID,
		DriverID:         input.DriverID,
		TruckID:          input.TruckID,
		Material:         input.Material,
		Quantity:         input.Quantity,
		Price:            input.Price,
		DeliveryMethod:   input.DeliveryMethod,
		DeliveryLocation: input.DeliveryLocation,
		ScheduledAt:      input.ScheduledAt,
	}, now)
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:  "trip_create_rejected",
			Message: err.Error(),
			Additional: map[string]any{
				"request_id": input.RequestID,
			},
		})
		return nil, err
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		// параллельный consumer успел создать рейс по той же заявке
		if errors.Is(err, domain.ErrDuplicateTrip) {
			return s.tripRepo.FindByRequestID(ctx, input.RequestID)
		}
		s.log.Error(logger.Entry{
			Action:  "create_trip_failed",
			Message: err.Error(),
			TripID:  trip.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"request_id": input.RequestID,
			},
		})
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.recorder.RecordTransition(domain.MilestoneTripAssigned, domain.RoleTruckOwner)
	s.log.Info(logger.Entry{
		Action:  "trip_created",
		Message: input.RequestID,
		TripID:  trip.ID,
		Additional: map[string]any{
			"driver_id":      trip.DriverID,
			"truck_owner_id": trip.TruckOwnerID,
			"mine_owner_id":  trip.MineOwnerID,
		},
	})

	s.announce(ctx, out.EventTripCreated, eventData(trip, trip.TruckOwnerID, domain.RoleTruckOwner, now), trip,
		domain.MilestoneTripAssigned.Label(), now)

	return trip, nil
}
