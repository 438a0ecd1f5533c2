package out_ws

import (
	"context"
	"errors"

	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/ws"
	"buildorite/internal/trip/application/ports/out"
)

// UserSender — доставка JSON пользователю по user_id
type UserSender interface {
	SendToUserJSON(userID string, data any) error
}

// WsTripNotifier отправляет trip_update участникам через WebSocket
type WsTripNotifier struct {
	hub UserSender
	log *logger.Logger
}

// NewWsTripNotifier создает новый notifier
func NewWsTripNotifier(hub UserSender, log *logger.Logger) *WsTripNotifier {
	return &WsTripNotifier{
		hub: hub,
		log: log,
	}
}

// NotifyUser отправляет уведомление пользователю.
// Офлайн-пользователь не ошибка: он перечитает рейс при следующем открытии.
func (n *WsTripNotifier) NotifyUser(ctx context.Context, userID string, notification out.TripNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := n.hub.SendToUserJSON(userID, notification)
	switch {
	case err == nil:
		n.log.Debug(logger.Entry{
			Action:  "trip_update_sent",
			Message: notification.Type,
			TripID:  notification.TripID,
			Additional: map[string]any{
				"user_id": userID,
			},
		})
		return nil
	case errors.Is(err, ws.ErrUserOffline):
		return nil
	default:
		return err
	}
}
