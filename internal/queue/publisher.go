package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends JSON messages to durable queues on RabbitMQ.  A
// connection is dialed per publish; traffic is low and this keeps the
// publisher free of reconnect state.
type Publisher struct {
	url string
	log *slog.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, log: slog.Default().With("component", "publisher")}
}

// Publish declares queue (idempotent) and sends v as a persistent
// message routed through the default exchange.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queue, err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	p.log.Debug("message published", "queue", queue, "bytes", len(body))
	return nil
}

// CheckoutCompleted publishes ev to the checkout.completed queue.
func (p *Publisher) CheckoutCompleted(ctx context.Context, ev CheckoutCompletedEvent) error {
	return p.Publish(ctx, CheckoutCompletedQueue, ev)
}

// SendEmail enqueues msg for delivery by the email consumer.
func (p *Publisher) SendEmail(ctx context.Context, msg EmailMessage) error {
	return p.Publish(ctx, EmailOutboundQueue, msg)
}
