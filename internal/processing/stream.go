package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"lasdesk/internal/events"
	"lasdesk/internal/shared/telemetry"
)

// ErrClientClosed is returned by Subscribe after Close.
var ErrClientClosed = errors.New("processing: stream client closed")

// Listener receives every entry accepted for the subscribed job.
type Listener func(fileID int64, entry LogEntry)

// Subscription is the handle of one open stream for one file id.
type Subscription struct {
	fileID      int64
	cancel      context.CancelFunc
	intentional atomic.Bool
	done        chan struct{}
}

// FileID is the job the subscription is bound to.
func (s *Subscription) FileID() int64 { return s.fileID }

// Cancel tears the subscription down without waiting. No entries are
// accepted afterwards and no connectivity error is synthesized.
func (s *Subscription) Cancel() {
	s.intentional.Store(true)
	s.cancel()
}

// Cancelled reports whether Cancel was called.
func (s *Subscription) Cancelled() bool { return s.intentional.Load() }

// Done is closed once the transport has returned.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Wait blocks until the transport has returned.
func (s *Subscription) Wait() { <-s.done }

// StreamClient keeps at most one subscription open and feeds accepted
// entries into the log cache and the store.
type StreamClient struct {
	transport Transport
	cache     *LogCache
	store     *Store
	logger    telemetry.Logger

	mu        sync.Mutex
	current   *Subscription
	listeners []Listener
	closed    bool
}

// NewStreamClient constructs a StreamClient.
func NewStreamClient(transport Transport, cache *LogCache, store *Store, logger telemetry.Logger) *StreamClient {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	return &StreamClient{transport: transport, cache: cache, store: store, logger: logger}
}

// Listen registers fn for entries of every future and current subscription.
func (c *StreamClient) Listen(fn Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Subscribe cancels the open subscription, if any, and opens one for
// fileID. Entries already in the log cache remain the job's history; the
// server does not replay missed events.
func (c *StreamClient) Subscribe(fileID int64) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.current != nil {
		c.current.Cancel()
		c.current = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{fileID: fileID, cancel: cancel, done: make(chan struct{})}
	c.current = sub
	c.logger.Debug("processing.subscribe", map[string]any{"file_id": fileID})

	go c.run(ctx, sub)
	return sub, nil
}

// Current returns the open subscription, or nil.
func (c *StreamClient) Current() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Unsubscribe cancels sub if it is still the open subscription.
func (c *StreamClient) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	if c.current == sub {
		c.current = nil
	}
	c.mu.Unlock()
	sub.Cancel()
}

// Close cancels the open subscription and waits for it to stop.
func (c *StreamClient) Close() {
	c.mu.Lock()
	c.closed = true
	sub := c.current
	c.current = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Cancel()
		sub.Wait()
	}
}

func (c *StreamClient) run(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer sub.cancel()

	err := c.transport.Stream(ctx, func(ev events.ProcessLog) {
		if ev.FileID != sub.fileID || sub.Cancelled() {
			return
		}
		c.accept(sub, entryFromEvent(ev))
	})
	if sub.Cancelled() {
		return
	}
	fields := map[string]any{"file_id": sub.fileID}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.logger.Warn("processing.stream_lost", fields)

	c.mu.Lock()
	if c.current == sub {
		c.current = nil
	}
	c.mu.Unlock()
	c.accept(sub, LogEntry{Message: LostConnectionMessage, Step: events.StepError, Local: true})
}

// accept runs entries strictly in arrival order on the subscription's
// goroutine.
func (c *StreamClient) accept(sub *Subscription, entry LogEntry) {
	if c.cache != nil {
		c.cache.Append(sub.fileID, entry)
	}
	if p, ok := Estimate(entry.Step, entry.Inserted, entry.Total); ok && c.store != nil {
		c.store.Advance(sub.fileID, p)
	}
	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(sub.fileID, entry)
	}
}
