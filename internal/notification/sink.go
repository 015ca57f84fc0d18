package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Sink handles a single event synchronously.
type Sink interface {
	Handle(ctx context.Context, e Event) error
}

// Notifier accepts events without ever failing the caller.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// MultiSink fans an event out to every sink; one failing sink does not stop the rest.
type MultiSink []Sink

func (m MultiSink) Handle(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Handle(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the service log.
type LogSink struct{}

func (LogSink) Handle(_ context.Context, e Event) error {
	log.Info().
		Stringer("event", e.Type).
		Str("order_id", e.OrderID).
		Str("order_number", e.OrderNumber).
		Str("recipient", e.Recipient).
		Str("status", e.Status).
		Msg("notification: event emitted")
	return nil
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
