package eventbus

import (
	"context"
	"errors"
	"sync"

	"wavespush/internal/models"
)

// DefaultCapacity is the size of the event channel. Producers block once
// this many events are in flight, which backpressures the ingesters when
// the processor falls behind.
const DefaultCapacity = 100

// ErrClosed is returned by Publish after the bus has been closed.
var ErrClosed = errors.New("eventbus: closed")

// EventWithFeedback pairs an event with the channel the processor uses to
// report the outcome of handling it.
type EventWithFeedback struct {
	Event    models.Event
	Feedback chan<- error
}

// Bus is the in-process queue between the ingesters and the single event
// processor. Publishing is synchronous: it returns once the processor has
// handled the event, so each producer observes its own events in order.
// Safe for concurrent use.
type Bus struct {
	events    chan EventWithFeedback
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Bus with the given channel capacity. Zero or negative
// capacity falls back to DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		events: make(chan EventWithFeedback, capacity),
		done:   make(chan struct{}),
	}
}

// Publish queues an event and waits for the processor's ack. It returns the
// processor's handling error, the context error on cancellation, or
// ErrClosed once the processor has shut down.
func (b *Bus) Publish(ctx context.Context, event models.Event) error {
	feedback := make(chan error, 1)
	select {
	case b.events <- EventWithFeedback{Event: event, Feedback: feedback}:
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-feedback:
		return err
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the channel the processor consumes. Every received event
// must be answered on its Feedback channel exactly once.
func (b *Bus) Events() <-chan EventWithFeedback {
	return b.events
}

// Close releases all blocked and future publishers with ErrClosed. It does
// not close the events channel; events already queued stay readable.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
