package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/mq"
	"buildorite/internal/trip/application/ports/out"
)

// Publisher — то, что нужно от брокера для публикации
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// TripEventPublisher публикует события рейсов в trip_topic
type TripEventPublisher struct {
	mq  Publisher
	log *logger.Logger
}

// NewTripEventPublisher создает новый publisher
func NewTripEventPublisher(mqConn Publisher, log *logger.Logger) *TripEventPublisher {
	return &TripEventPublisher{
		mq:  mqConn,
		log: log,
	}
}

type envelope struct {
	Type string            `json:"type"`
	Data out.TripEventData `json:"data"`
}

// PublishTripEvent публикует событие рейса
func (p *TripEventPublisher) PublishTripEvent(ctx context.Context, eventType string, data out.TripEventData) error {
	payload, err := json.Marshal(envelope{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	routingKey := RoutingKey(eventType, data)
	if err := p.mq.Publish(ctx, mq.ExchangeTrip, routingKey, payload); err != nil {
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:  "trip_event_published",
		Message: eventType,
		TripID:  data.TripID,
		Additional: map[string]any{
			"routing_key": routingKey,
		},
	})
	return nil
}

// RoutingKey возвращает routing key для события
func RoutingKey(eventType string, data out.TripEventData) string {
	switch eventType {
	case out.EventTripCreated:
		return "trip.created"
	case out.EventMilestoneAdvanced:
		return "trip.milestone." + string(data.Milestone)
	case out.EventMilestoneVerified:
		return "trip.verified." + string(data.Milestone)
	case out.EventIssueReported:
		return "trip.issue_reported"
	case out.EventTripCanceled:
		return "trip.canceled"
	default:
		return "trip.event"
	}
}
