package out

import (
	"context"
)

// TripNotification — уведомление участнику рейса через WebSocket
type TripNotification struct {
	Type    string `json:"type"` // trip_update
	TripID  string `json:"trip_id"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// TripNotifier — интерфейс для отправки WebSocket уведомлений
type TripNotifier interface {
	// NotifyUser отправляет уведомление пользователю
	NotifyUser(ctx context.Context, userID string, notification TripNotification) error
}
