// Package notifications carries the domain events the checkout and payment
// pipeline emits. Delivery is in-process and fire-and-forget: handlers that
// fail are logged and never fail the operation that published the event.
package notifications

import (
	"context"
	"log/slog"
	"sync"
)

type Event interface {
	Name() string
}

type OrderPlaced struct {
	OrderID     string
	OrderNumber string
	BuyerID     string
	BusinessID  string
	TotalCents  int64
	Currency    string
}

func (OrderPlaced) Name() string { return "order_placed" }

type OrderConfirmed struct {
	OrderID     string
	OrderNumber string
	ReceiptCode string
}

func (OrderConfirmed) Name() string { return "order_confirmed" }

type PaymentFailed struct {
	OrderID     string
	OrderNumber string
	Reason      string
}

func (PaymentFailed) Name() string { return "order_payment_failed" }

type OrderDelivered struct {
	OrderID string
	ActorID string
}

func (OrderDelivered) Name() string { return "order_delivered" }

type SettlementReleased struct {
	SettlementID string
	OrderID      string
	BusinessID   string
	NetCents     int64
}

func (SettlementReleased) Name() string { return "settlement_released" }

type Handler func(ctx context.Context, ev Event) error

type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger, handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches ev to every subscribed handler synchronously. Handler
// errors are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	hs := b.handlers[ev.Name()]
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed", "event", ev.Name(), "err", err)
		}
	}
}

// LogHandler stands in for the external notification dispatcher (SMS /
// email transport is out of scope); it records every event it sees.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, ev Event) error {
		logger.InfoContext(ctx, "notification dispatched", "event", ev.Name(), "payload", ev)
		return nil
	}
}
