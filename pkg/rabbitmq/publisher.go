// Package rabbitmq publishes JSON-encoded job messages to a RabbitMQ
// exchange. Each publish uses its own short-lived connection, and the
// exchange is declared passively: it must already exist on the broker, and
// publishing fails rather than creating infrastructure as a side effect.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/docuflow/ai-doc-ingestion/pkg/config"
)

// connection is the subset of *amqp.Connection the publisher uses.
type connection interface {
	Channel() (channel, error)
	Close() error
}

// channel is the subset of *amqp.Channel the publisher uses. *amqp.Channel
// satisfies it directly.
type channel interface {
	ExchangeDeclarePassive(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type amqpConnection struct {
	*amqp.Connection
}

func (c *amqpConnection) Channel() (channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func amqpDial(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn}, nil
}

// Publisher publishes messages to one fixed exchange and routing key.
type Publisher struct {
	cfg    config.BrokerConfig
	logger *slog.Logger
	dial   func(url string) (connection, error)
}

// New creates a Publisher for the configured broker destination.
func New(cfg config.BrokerConfig) *Publisher {
	return &Publisher{
		cfg:    cfg,
		logger: slog.Default().With("component", "rabbitmq-publisher", "exchange", cfg.Exchange),
		dial:   amqpDial,
	}
}

// Publish serialises body as JSON and sends it to the configured exchange
// under the configured routing key. A fresh connection is dialled per call
// and closed before returning. Errors are returned to the caller; the
// swallow-and-log policy for deferred publishes lives in the dispatcher, not
// here.
func (p *Publisher) Publish(ctx context.Context, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling message body: %w", err)
	}

	conn, err := p.dial(p.cfg.URL())
	if err != nil {
		return fmt.Errorf("dialling broker %s: %w", p.cfg.Host, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}

	// The exchange is owned by the broker deployment; declare it passively so
	// a missing exchange surfaces as an error instead of being created here.
	if err := ch.ExchangeDeclarePassive(p.cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange %s not available: %w", p.cfg.Exchange, err)
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	}
	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publishing to %s/%s: %w", p.cfg.Exchange, p.cfg.RoutingKey, err)
	}

	p.logger.Debug("message published",
		"routing_key", p.cfg.RoutingKey,
		"body_size", len(payload),
	)
	return nil
}

// Ping verifies the broker accepts connections. Used by the readiness check.
func (p *Publisher) Ping(ctx context.Context) error {
	conn, err := p.dial(p.cfg.URL())
	if err != nil {
		return fmt.Errorf("dialling broker %s: %w", p.cfg.Host, err)
	}
	return conn.Close()
}
