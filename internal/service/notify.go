package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/queue"
)

// Notifier is the asynchronous outbound channel.  Implementations only
// enqueue; delivery happens in the queue consumers.
type Notifier interface {
	CheckoutCompleted(ctx context.Context, ev queue.CheckoutCompletedEvent) error
	SendEmail(ctx context.Context, msg queue.EmailMessage) error
}

type nopNotifier struct{}

func (nopNotifier) CheckoutCompleted(context.Context, queue.CheckoutCompletedEvent) error { return nil }
func (nopNotifier) SendEmail(context.Context, queue.EmailMessage) error { return nil }

const notifyTimeout = 5 * time.Second

// fireAndForget runs fn in the background with its own deadline.  The
// triggering operation has already committed, so failures are logged
// and dropped.
func fireAndForget(log *slog.Logger, what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn("notification failed", "what", what, "err", err)
		}
	}()
}

func checkoutEvent(r *model.Report) queue.CheckoutCompletedEvent {
	ev := queue.CheckoutCompletedEvent{
		ReportID:      r.ID,
		TenantID:      r.TenantID,
		SessionID:     r.SessionID,
		Plate:         r.Plate,
		Category:      r.Category,
		EntryTime:     r.EntryTime.UTC().Format(time.RFC3339),
		ExitTime:      r.ExitTime.UTC().Format(time.RFC3339),
		Duration:      r.Duration,
		Amount:        r.Amount.StringFixed(2),
		PaymentStatus: r.PaymentStatus,
	}
	if r.PaymentMethod != nil {
		ev.PaymentMethod = *r.PaymentMethod
	}
	return ev
}
