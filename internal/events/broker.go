package events

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing to or subscribing on a closed broker.
var ErrClosed = errors.New("events: broker closed")

// Publisher emits process_log events.
type Publisher interface {
	Publish(ctx context.Context, ev ProcessLog) error
}

// Subscription delivers events until closed. Done closes when the
// subscription ends for any reason; Err reports a transport failure.
type Subscription interface {
	Events() <-chan ProcessLog
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Broker fans events out to every subscriber.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context) (Subscription, error)
	Close() error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev ProcessLog) error

func (f PublisherFunc) Publish(ctx context.Context, ev ProcessLog) error { return f(ctx, ev) }
