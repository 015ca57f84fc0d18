package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const handleTimeout = 5 * time.Second

// Dispatcher decouples event delivery from the request path. Notify never
// blocks: when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	sink   Sink
	events chan dispatched
}

type dispatched struct {
	ctx   context.Context
	event Event
}

func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		sink:   sink,
		events: make(chan dispatched, buffer),
	}
}

func (d *Dispatcher) Notify(ctx context.Context, e Event) {
	select {
	case d.events <- dispatched{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		log.Warn().
			Stringer("event", e.Type).
			Str("order_number", e.OrderNumber).
			Msg("notification: buffer full, event dropped")
	}
}

// Run delivers events until ctx is cancelled, then drains what is already
// buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case item := <-d.events:
			d.handle(item)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case item := <-d.events:
			d.handle(item)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(item dispatched) {
	ctx, cancel := context.WithTimeout(item.ctx, handleTimeout)
	defer cancel()

	if err := d.sink.Handle(ctx, item.event); err != nil {
		log.Error().
			Err(err).
			Stringer("event", item.event.Type).
			Str("order_number", item.event.OrderNumber).
			Msg("notification: sink failed")
	}
}
