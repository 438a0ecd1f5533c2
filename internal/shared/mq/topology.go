package mq

import (
	"context"
	"fmt"

	"buildorite/internal/shared/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges
const (
	ExchangeTrip       = "trip_topic"
	ExchangeRequest    = "request_topic"
	ExchangeDeadLetter = "trip_dlx"
)

// Очереди и ключи маршрутизации
const (
	QueueTripAssignments = "trip.assignments"
	QueueTripEvents      = "trip.events"
	QueueDeadLetter      = "trip.dead_letter"

	RoutingDriverAssigned = "request.driver_assigned"
	RoutingAllTripEvents  = "trip.#"
)

type exchangeDecl struct {
	Name string
	Kind string
}

// Binding — очередь, привязанная к exchange по ключу
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Args       amqp.Table
}

var exchanges = []exchangeDecl{
	{Name: ExchangeTrip, Kind: amqp.ExchangeTopic},
	{Name: ExchangeRequest, Kind: amqp.ExchangeTopic},
	{Name: ExchangeDeadLetter, Kind: amqp.ExchangeFanout},
}

// Bindings — все очереди trip service
var Bindings = []Binding{
	{
		Queue:      QueueTripAssignments,
		Exchange:   ExchangeRequest,
		RoutingKey: RoutingDriverAssigned,
		Args:       amqp.Table{"x-dead-letter-exchange": ExchangeDeadLetter},
	},
	{Queue: QueueTripEvents, Exchange: ExchangeTrip, RoutingKey: RoutingAllTripEvents},
	{Queue: QueueDeadLetter, Exchange: ExchangeDeadLetter},
}

// SetupTopology создает exchanges, очереди и привязки. Повторный вызов безопасен.
func SetupTopology(ctx context.Context, mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return ErrChannelUnavailable
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.Name, ex.Kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", ex.Name, err)
		}
	}

	for _, b := range Bindings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, b.Args); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.Queue, err)
		}
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: "all exchanges and queues created",
		Additional: map[string]any{
			"exchanges": len(exchanges),
			"queues":    len(Bindings),
		},
	})

	return nil
}
