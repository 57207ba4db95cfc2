package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrChannelClosed is returned once the broker closed the publishing channel.
var ErrChannelClosed = errors.New("amqp channel closed")

// Publisher publishes JSON events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// NewPublisher connects to amqpURL and declares exchange. Any failure
// yields a noop publisher that records the reason.
func NewPublisher(amqpURL, exchange string, logger *slog.Logger) Publisher {
	logger = logger.With(slog.String("component", "rabbitmq"))
	if amqpURL == "" {
		return &noopPublisher{reason: "empty amqp url", logger: logger}
	}

	conn, ch, err := dial(amqpURL, exchange)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events dropped", slog.Any("error", err))
		return &noopPublisher{reason: err.Error(), logger: logger}
	}

	p := &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
	go p.watch(ch.NotifyClose(make(chan *amqp.Error, 1)))
	logger.Info("rabbitmq connected", slog.String("exchange", exchange))
	return p
}

func dial(amqpURL, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}
	return conn, ch, nil
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	closed   atomic.Bool
	logger   *slog.Logger
}

func (p *amqpPublisher) watch(notify <-chan *amqp.Error) {
	if err, ok := <-notify; ok && err != nil {
		p.logger.Warn("rabbitmq channel closed by broker", slog.Int("code", err.Code), slog.String("reason", err.Reason))
	}
	p.closed.Store(true)
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	if p.closed.Load() {
		return ErrChannelClosed
	}
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      toTable(headers),
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", routingKey)
}

func (p *amqpPublisher) Close() error {
	p.closed.Store(true)
	_ = p.ch.Close()
	return p.conn.Close()
}

func toTable(headers map[string]string) amqp.Table {
	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		table[key] = value
	}
	return table
}

type noopPublisher struct {
	reason string
	logger *slog.Logger
}

func (p *noopPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	p.logger.Debug("event dropped", slog.String("routing_key", routingKey))
	return nil
}

func (p *noopPublisher) Close() error { return nil }

// PublisherMode reports "amqp" or "noop" for startup logging.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case *noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

func PublisherNoopReason(p Publisher) string {
	if publisher, ok := p.(*noopPublisher); ok {
		return publisher.reason
	}
	return ""
}
