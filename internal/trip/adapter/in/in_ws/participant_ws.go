package in_ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"buildorite/internal/shared/auth"
	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/ws"
	"buildorite/internal/trip/adapter/in/transport"
	"buildorite/internal/trip/application/ports/in"
)

const snapshotTimeout = 5 * time.Second

// ParticipantWSHandler обрабатывает WebSocket соединения участников рейса:
// водителей, владельцев грузовиков и владельцев карьеров.
type ParticipantWSHandler struct {
	hub     *ws.Hub
	getTrip in.GetTripUseCase
	log     *logger.Logger
}

// NewAuthFunc проверяет токен и пускает только роли участников рейса
func NewAuthFunc(jwtSvc *auth.JWTService) ws.AuthFunc {
	return func(token string) (string, string, error) {
		claims, err := jwtSvc.ValidateToken(token)
		if err != nil {
			return "", "", err
		}
		if _, ok := transport.ParseRole(claims.Role); !ok {
			return "", "", fmt.Errorf("invalid role: %s", claims.Role)
		}
		return claims.UserID, claims.Role, nil
	}
}

// NewParticipantWSHandler создает handler поверх hub и подключает обработчик сообщений
func NewParticipantWSHandler(hub *ws.Hub, getTrip in.GetTripUseCase, log *logger.Logger) *ParticipantWSHandler {
	h := &ParticipantWSHandler{hub: hub, getTrip: getTrip, log: log}
	hub.SetMessageHandler(h.handleMessage)
	return h
}

// Hub возвращает WebSocket hub
func (h *ParticipantWSHandler) Hub() *ws.Hub {
	return h.hub
}

// ServeWS обрабатывает WebSocket соединение участника
func (h *ParticipantWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

type snapshotRequest struct {
	TripID string `json:"trip_id"`
}

type outgoing struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleMessage обрабатывает входящие сообщения участников.
// trip_snapshot отдает текущее состояние рейса, например после переподключения.
func (h *ParticipantWSHandler) handleMessage(client *ws.Client, msgType string, data json.RawMessage) error {
	switch msgType {
	case "ping":
		return client.Send(outgoing{Type: "pong", Data: map[string]string{"status": "ok"}})

	case "trip_snapshot":
		var req snapshotRequest
		if err := json.Unmarshal(data, &req); err != nil || req.TripID == "" {
			return client.Send(outgoing{Type: "error", Error: "trip_id is required"})
		}
		role, ok := transport.ParseRole(client.Role)
		if !ok {
			return client.Send(outgoing{Type: "error", Error: "role is not a trip participant"})
		}

		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		view, err := h.getTrip.Execute(ctx, in.GetTripInput{
			TripID:  req.TripID,
			ActorID: client.UserID,
			Role:    role,
		})
		if err != nil {
			msg := "internal server error"
			if status := transport.StatusFor(err); status != http.StatusInternalServerError {
				msg = err.Error()
			}
			return errors.Join(err, client.Send(outgoing{Type: "error", Error: msg}))
		}
		return client.Send(outgoing{Type: "trip_update", Data: view})

	default:
		h.log.Warn(logger.Entry{
			Action:  "participant_ws_unknown_message_type",
			Message: msgType,
			Additional: map[string]any{
				"user_id": client.UserID,
			},
		})
		return client.Send(outgoing{Type: "error", Error: "unknown message type"})
	}
}
