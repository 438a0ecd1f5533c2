package usecase

import (
	"context"
	"strings"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

// ReportIssueService реализует ReportIssueUseCase
type ReportIssueService struct {
	tripRepo out.TripRepository
	recorder out.TransitionRecorder
	announcer
	now func() time.Time
}

// NewReportIssueService создает сервис сообщения о проблеме в пути
func NewReportIssueService(
	tripRepo out.TripRepository,
	publisher out.EventPublisher,
	notifier out.TripNotifier,
	recorder out.TransitionRecorder,
	log *logger.Logger,
) *ReportIssueService {
	return &ReportIssueService{
		tripRepo:  tripRepo,
		recorder:  recorder,
		announcer: announcer{publisher: publisher, notifier: notifier, log: log},
		now:       time.Now,
	}
}

// Execute переводит рейс в issue_reported. История этапов не меняется.
func (s *ReportIssueService) Execute(ctx context.Context, input in.ReportIssueInput) (*in.TripView, error) {
	trip, err := s.tripRepo.Mutate(ctx, input.TripID, func(trip *domain.Trip) error {
		if err := ensureParticipant(trip, input.ActorID, input.Role); err != nil {
			return err
		}
		if err := domain.ValidateReportIssue(trip, input.Role, input.Reason); err != nil {
			return err
		}
		trip.MarkIssueReported(domain.Issue{
			Reason: input.Reason,
			Notes:  strings.TrimSpace(input.Notes),
		}, s.now())
		return nil
	})
	if err != nil {
		s.recorder.RecordRejection("report_issue", rejectionReason(err))
		s.logRejection("issue_report", map[string]any{
			"reason":   input.Reason,
			"actor_id": input.ActorID,
			"role":     input.Role,
		}, input.TripID, err)
		return nil, err
	}

	s.recorder.RecordStatusChange(trip.Status)
	s.log.Warn(logger.Entry{
		Action:  "trip_issue_reported",
		Message: string(input.Reason),
		TripID:  trip.ID,
		Additional: map[string]any{
			"driver_id": input.ActorID,
			"milestone": domain.LatestMilestone(trip).Status,
		},
	})

	now := s.now()
	s.announce(ctx, out.EventIssueReported, eventData(trip, input.ActorID, input.Role, now), trip,
		"Issue reported: "+string(input.Reason), now)

	return in.BuildTripView(trip, input.Role, now), nil
}
