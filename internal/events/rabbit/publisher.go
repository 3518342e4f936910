// Package rabbit publishes order events to a RabbitMQ topic exchange.
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/events"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher is an events.Sink. Routing keys are "orden.<kind>", so consumers
// can bind to "orden.#" or to a single kind.
type Publisher struct {
	ch       Channel
	exchange string
	logger   zerolog.Logger
}

var _ events.Sink = (*Publisher)(nil)

func NewPublisher(ch Channel, exchange string, logger zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("exchange name is required")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "rabbit_publisher").Logger(),
	}, nil
}

func RoutingKey(kind events.Kind) string {
	return "orden." + string(kind)
}

func (p *Publisher) Emit(ctx context.Context, evt events.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(evt.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OcurridoEn,
		Type:         string(evt.Kind),
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", evt.Kind)
	}
	p.logger.Debug().
		Str("event", string(evt.Kind)).
		Str("orden_id", evt.OrdenID).
		Msg("event published")
	return nil
}

// Connection owns the AMQP connection and channel used by a Publisher.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open rabbitmq channel")
	}
	return &Connection{conn: conn, ch: ch}, nil
}

func (c *Connection) Channel() *amqp.Channel { return c.ch }

func (c *Connection) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
