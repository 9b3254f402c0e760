package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one delivery body.  A returned error rejects the
// message without requeueing it.
type HandlerFunc func(ctx context.Context, body []byte) error

const maxBackoff = 30 * time.Second

// Consume connects to the broker at url and feeds every delivery of queue
// to h.  Connection failures are retried with exponential backoff; the
// loop only returns when ctx is cancelled.
func Consume(ctx context.Context, url, queue string, h HandlerFunc) error {
	log := slog.Default().With("component", "consumer", "queue", queue)
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, h, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h HandlerFunc, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := h(ctx, d.Body); err != nil {
				log.Error("handle message failed", "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// CheckoutLogHandler appends one line per checkout.completed event to
// checkout.log inside dir.
func CheckoutLogHandler(dir string) HandlerFunc {
	return func(_ context.Context, body []byte) error {
		var ev CheckoutCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "checkout.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()

		if _, err := f.WriteString(formatCheckoutLine(ev)); err != nil {
			return fmt.Errorf("write log: %w", err)
		}
		return nil
	}
}

func formatCheckoutLine(ev CheckoutCompletedEvent) string {
	method := ev.PaymentMethod
	if method == "" {
		method = "-"
	}
	return fmt.Sprintf("[%s] Checkout completed | relatorio_id=%d | empresa_id=%d | vaga_id=%d | placa=%s | tipo=%s | entrada=%s | duracao=%s | valor=%s | forma=%q | status=%q\n",
		ev.ExitTime, ev.ReportID, ev.TenantID, ev.SessionID, ev.Plate, ev.Category, ev.EntryTime, ev.Duration,
		ev.Amount, method, ev.PaymentStatus)
}

// Sender delivers a plain-text e-mail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailHandler delivers email.outbound messages through s.  Messages
// without a recipient are rejected.
func EmailHandler(s Sender) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var msg EmailMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if strings.TrimSpace(msg.To) == "" {
			return errors.New("email message without recipient")
		}
		return s.Send(ctx, msg.To, msg.Subject, msg.Body)
	}
}
