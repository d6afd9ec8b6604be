package processing

import (
	"context"
	"sync"
	"testing"
	"time"

	"lasdesk/internal/events"
)

type fakeStream struct {
	ctx           context.Context
	deliver       func(events.ProcessLog)
	fail          chan error
	prevCancelled bool
}

func (s *fakeStream) send(ev events.ProcessLog) { s.deliver(ev) }

type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeStream
	opened  chan *fakeStream
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{opened: make(chan *fakeStream, 16)}
}

func (f *fakeTransport) Stream(ctx context.Context, deliver func(events.ProcessLog)) error {
	fs := &fakeStream{ctx: ctx, deliver: deliver, fail: make(chan error, 1), prevCancelled: true}
	f.mu.Lock()
	for _, prev := range f.streams {
		if prev.ctx.Err() == nil {
			fs.prevCancelled = false
		}
	}
	f.streams = append(f.streams, fs)
	f.mu.Unlock()
	f.opened <- fs

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-fs.fail:
		return err
	}
}

func (f *fakeTransport) next(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case fs := <-f.opened:
		return fs
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stream to open")
		return nil
	}
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.streams {
		if s.ctx.Err() == nil {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func id(v int64) *int64 { return &v }

func newTestCache(t *testing.T) *LogCache {
	t.Helper()
	cache, err := NewLogCache(8, time.Hour)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return cache
}

type harness struct {
	transport *fakeTransport
	store     *Store
	cache     *LogCache
	client    *StreamClient
	tracker   *Tracker
	snapshots *MemorySnapshotStore
}

func newHarness(t *testing.T, snapshot string) *harness {
	t.Helper()
	h := &harness{transport: newFakeTransport(), snapshots: NewMemorySnapshotStore(snapshot)}
	h.store = NewStore(h.snapshots, nil)
	h.cache = newTestCache(t)
	h.client = NewStreamClient(h.transport, h.cache, h.store, nil)
	h.tracker = NewTracker(h.store, h.client, h.cache, nil)
	t.Cleanup(func() {
		h.tracker.Close()
		h.client.Close()
	})
	return h
}
