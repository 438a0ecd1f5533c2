package out

import (
	"context"
	"time"

	"buildorite/internal/trip/domain"
)

// Типы событий рейса
const (
	EventTripCreated       = "TRIP_CREATED"
	EventMilestoneAdvanced = "MILESTONE_ADVANCED"
	EventMilestoneVerified = "MILESTONE_VERIFIED"
	EventIssueReported     = "ISSUE_REPORTED"
	EventTripCanceled      = "TRIP_CANCELED"
)

// TripEventData — данные события рейса
type TripEventData struct {
	TripID       string            `json:"trip_id"`
	RequestID    string            `json:"request_id"`
	Status       domain.TripStatus `json:"status"`
	Milestone    domain.Milestone  `json:"milestone,omitempty"`
	ActorID      string            `json:"actor_id,omitempty"`
	ActorRole    domain.Role       `json:"actor_role,omitempty"`
	DriverID     string            `json:"driver_id"`
	TruckOwnerID string            `json:"truck_owner_id"`
	MineOwnerID  string            `json:"mine_owner_id"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Issue        *domain.Issue     `json:"issue,omitempty"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
}

// EventPublisher — интерфейс для публикации событий в RabbitMQ
type EventPublisher interface {
	// PublishTripEvent публикует событие рейса
	PublishTripEvent(ctx context.Context, eventType string, data TripEventData) error
}
