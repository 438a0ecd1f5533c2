package usecase

import (
	"context"
	"errors"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"
)

const notificationTripUpdate = "trip_update"

// announcer рассылает последствия уже сохраненного изменения рейса:
// событие в RabbitMQ и trip_update каждому участнику.
// Ошибки только логируются, т.к. изменение уже зафиксировано.
type announcer struct {
	publisher out.EventPublisher
	notifier  out.TripNotifier
	log       *logger.Logger
}

func (a announcer) announce(ctx context.Context, eventType string, data out.TripEventData, trip *domain.Trip, message string, now time.Time) {
	if err := a.publisher.PublishTripEvent(ctx, eventType, data); err != nil {
		a.log.Error(logger.Entry{
			Action:  "publish_trip_event_failed",
			Message: err.Error(),
			TripID:  trip.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"event_type": eventType,
			},
		})
	}

	for _, role := range []domain.Role{domain.RoleDriver, domain.RoleTruckOwner, domain.RoleMineOwner} {
		userID := trip.ParticipantID(role)
		if userID == "" {
			continue
		}
		// Каждый участник получает представление для своей роли
		notification := out.TripNotification{
			Type:    notificationTripUpdate,
			TripID:  trip.ID,
			Message: message,
			Data:    in.BuildTripView(trip, role, now),
		}
		if err := a.notifier.NotifyUser(ctx, userID, notification); err != nil {
			a.log.Warn(logger.Entry{
				Action:  "notify_participant_failed",
				Message: err.Error(),
				TripID:  trip.ID,
				Additional: map[string]any{
					"user_id": userID,
					"role":    role,
				},
			})
		}
	}
}

func eventData(trip *domain.Trip, actorID string, role domain.Role, now time.Time) out.TripEventData {
	latest := domain.LatestMilestone(trip)
	return out.TripEventData{
		TripID:       trip.ID,
		RequestID:    trip.RequestID,
		Status:       trip.Status,
		Milestone:    latest.Status,
		ActorID:      actorID,
		ActorRole:    role,
		DriverID:     trip.DriverID,
		TruckOwnerID: trip.TruckOwnerID,
		MineOwnerID:  trip.MineOwnerID,
		OccurredAt:   now,
		Issue:        trip.Issue,
		CancelReason: trip.CancelReason,
	}
}

// ensureParticipant проверяет, что actorID занимает в рейсе заявленную роль.
func ensureParticipant(trip *domain.Trip, actorID string, role domain.Role) error {
	if actorID == "" || trip.ParticipantID(role) != actorID {
		return domain.ErrNotTripParticipant
	}
	return nil
}

// rejectionReason — метка для счетчика отказов
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTripNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, domain.ErrMilestoneAlreadyReached):
		return "already_reached"
	case errors.Is(err, domain.ErrVerifierRequired):
		return "verifier_required"
	case errors.Is(err, domain.ErrRoleNotPermitted):
		return "role_not_permitted"
	case errors.Is(err, domain.ErrNotTripParticipant):
		return "not_participant"
	case errors.Is(err, domain.ErrTripClosed):
		return "trip_closed"
	case errors.Is(err, domain.ErrUnknownMilestone):
		return "unknown_milestone"
	case errors.Is(err, domain.ErrInvalidIssueReason):
		return "invalid_issue_reason"
	case errors.Is(err, domain.ErrCancelReasonRequired):
		return "cancel_reason_required"
	case errors.Is(err, domain.ErrCancelNotAllowed):
		return "cancel_not_allowed"
	default:
		return "internal"
	}
}

// isDomainRejection отличает отказ по правилам рейса от сбоя хранилища.
func isDomainRejection(err error) bool {
	return rejectionReason(err) != "internal"
}

func (a announcer) logRejection(operation string, input map[string]any, tripID string, err error) {
	entry := logger.Entry{
		Action:     operation + "_rejected",
		Message:    err.Error(),
		TripID:     tripID,
		Additional: input,
	}
	if isDomainRejection(err) {
		a.log.Warn(entry)
		return
	}
	entry.Action = operation + "_failed"
	entry.Error = &logger.ErrObj{Msg: err.Error()}
	a.log.Error(entry)
}
