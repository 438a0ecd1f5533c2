package usecase

import (
	"context"
	"fmt"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

const defaultListLimit = 100

// ListTripsService реализует ListTripsUseCase
type ListTripsService struct {
	tripRepo out.TripRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewListTripsService создает сервис списка рейсов
func NewListTripsService(tripRepo out.TripRepository, log *logger.Logger) *ListTripsService {
	return &ListTripsService{tripRepo: tripRepo, log: log, now: time.Now}
}

// Execute возвращает рейсы участника, разложенные по вкладкам.
// Категория вычисляется заново при каждом запросе.
func (s *ListTripsService) Execute(ctx context.Context, input in.ListTripsInput) (*in.ListTripsOutput, error) {
	if !input.Role.IsValid() || input.ActorID == "" {
		return nil, domain.ErrNotTripParticipant
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	trips, err := s.tripRepo.ListByParticipant(ctx, out.TripFilter{
		Role:     input.Role,
		UserID:   input.ActorID,
		Category: input.Category,
		Limit:    limit,
	})
	if err != nil {
		s.logFailure("list_trips_failed", input, err)
		return nil, fmt.Errorf("list trips: %w", err)
	}

	counts, err := s.tripRepo.CountByCategory(ctx, input.Role, input.ActorID)
	if err != nil {
		s.logFailure("count_trips_failed", input, err)
		return nil, fmt.Errorf("count trips: %w", err)
	}

	now := s.now()
	output := &in.ListTripsOutput{
		Trips: make([]*in.TripView, 0, len(trips)),
		Counts: map[domain.Category]int{
			domain.CategoryActive:    counts[domain.CategoryActive],
			domain.CategoryScheduled: counts[domain.CategoryScheduled],
			domain.CategoryHistory:   counts[domain.CategoryHistory],
		},
	}
	for _, trip := range trips {
		view := in.BuildTripView(trip, input.Role, now)
		// категория могла измениться между запросом и построением view
		if input.Category != "" && view.Category != input.Category {
			continue
		}
		output.Trips = append(output.Trips, view)
	}
	return output, nil
}

func (s *ListTripsService) logFailure(action string, input in.ListTripsInput, err error) {
	s.log.Error(logger.Entry{
		Action:  action,
		Message: err.Error(),
		Error:   &logger.ErrObj{Msg: err.Error()},
		Additional: map[string]any{
			"actor_id": input.ActorID,
			"role":     input.Role,
		},
	})
}
