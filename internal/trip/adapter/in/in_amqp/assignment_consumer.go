package inamqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/mq"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const handleTimeout = 10 * time.Second

// DriverAssignedMessage — заявка принята, водитель и грузовик назначены
type DriverAssignedMessage struct {
	RequestID        string     `json:"request_id"`
	MineID           string     `json:"mine_id"`
	MineOwnerID      string     `json:"mine_owner_id"`
	TruckOwnerID     string     `json:"truck_owner_id"`
	DriverID         string     `json:"driver_id"`
	TruckID          string     `json:"truck_id"`
	Material         string     `json:"material"`
	Quantity         float64    `json:"quantity"`
	Price            float64    `json:"price"`
	DeliveryMethod   string     `json:"delivery_method"`
	DeliveryLocation string     `json:"delivery_location"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
}

// Consumer — то, что нужно от mq.RabbitMQ
type Consumer interface {
	Consume(ctx context.Context, queue, consumer string, handler func(amqp.Delivery)) error
}

// AssignmentConsumer создает рейсы из request.driver_assigned
type AssignmentConsumer struct {
	mqConn     Consumer
	createTrip in.CreateTripUseCase
	log        *logger.Logger
}

// NewAssignmentConsumer создает новый consumer
func NewAssignmentConsumer(mqConn Consumer, createTrip in.CreateTripUseCase, log *logger.Logger) *AssignmentConsumer {
	return &AssignmentConsumer{mqConn: mqConn, createTrip: createTrip, log: log}
}

// Start подписывается на очередь trip.assignments
func (c *AssignmentConsumer) Start(ctx context.Context) error {
	if err := c.mqConn.Consume(ctx, mq.QueueTripAssignments, "trip-service-assignments", func(msg amqp.Delivery) {
		c.Handle(ctx, msg)
	}); err != nil {
		return fmt.Errorf("consume %s: %w", mq.QueueTripAssignments, err)
	}
	return nil
}

// Handle обрабатывает одно сообщение и подтверждает его.
// Некорректные сообщения уходят в dead letter, сбои хранилища
// переотправляются один раз.
func (c *AssignmentConsumer) Handle(ctx context.Context, msg amqp.Delivery) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	input, err := decodeAssignment(msg.Body)
	if err != nil {
		c.reject(msg, err)
		return
	}

	trip, err := c.createTrip.Execute(ctx, input)
	switch {
	case err == nil:
		c.log.Info(logger.Entry{
			Action:  "driver_assignment_consumed",
			Message: input.RequestID,
			TripID:  trip.ID,
			Additional: map[string]any{
				"routing_key": msg.RoutingKey,
			},
		})
		_ = msg.Ack(false)

	case errors.Is(err, domain.ErrInvalidTrip):
		c.reject(msg, err)

	default:
		requeue := !msg.Redelivered
		c.log.Error(logger.Entry{
			Action:  "handle_driver_assignment_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"request_id": input.RequestID,
				"requeue":    requeue,
			},
		})
		_ = msg.Nack(false, requeue)
	}
}

func (c *AssignmentConsumer) reject(msg amqp.Delivery, err error) {
	c.log.Warn(logger.Entry{
		Action:  "driver_assignment_rejected",
		Message: err.Error(),
		Additional: map[string]any{
			"routing_key": msg.RoutingKey,
			"message_id":  msg.MessageId,
		},
	})
	_ = msg.Nack(false, false)
}

func decodeAssignment(body []byte) (in.CreateTripInput, error) {
	var m DriverAssignedMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return in.CreateTripInput{}, fmt.Errorf("%w: parse driver assignment: %v", domain.ErrInvalidTrip, err)
	}
	return in.CreateTripInput{
		RequestID:        m.RequestID,
		MineID:           m.MineID,
		MineOwnerID:      m.MineOwnerID,
		TruckOwnerID:     m.TruckOwnerID,
		DriverID:         m.DriverID,
		TruckID:          m.TruckID,
		Material:         m.Material,
		Quantity:         m.Quantity,
		Price:            m.Price,
		DeliveryMethod:   domain.DeliveryMethod(m.DeliveryMethod),
		DeliveryLocation: m.DeliveryLocation,
		ScheduledAt:      m.ScheduledAt,
	}, nil
}
