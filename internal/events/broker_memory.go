package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// MemoryBroker is an in-process Broker. Slow subscribers drop events
// rather than block publishers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBroker constructs a MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, ev ProcessLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for sub := range b.subs {
		sub.deliver(ev)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{
		broker: b,
		events: make(chan ProcessLog, subscriberBuffer),
		done:   make(chan struct{}),
	}
	b.subs[sub] = struct{}{}
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

// Subscribers returns the number of open subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

type memorySubscription struct {
	broker *MemoryBroker
	events chan ProcessLog
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(ev ProcessLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *memorySubscription) Events() <-chan ProcessLog { return s.events }
func (s *memorySubscription) Done() <-chan struct{}     { return s.done }
func (s *memorySubscription) Err() error                { return nil }

func (s *memorySubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.events)
	s.mu.Unlock()
	s.broker.remove(s)
	return nil
}
