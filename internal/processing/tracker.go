package processing

import (
	"sort"
	"sync"

	"lasdesk/internal/shared/telemetry"
)

// FinishFunc is told when the active job ends or its stream is lost.
type FinishFunc func(fileID int64, entry LogEntry)

// Tracker binds the stream subscription to the store's active job while at
// least one view consumes it. It clears the store when the server reports
// done or error.
type Tracker struct {
	store  *Store
	client *StreamClient
	cache  *LogCache
	logger telemetry.Logger

	mu          sync.Mutex
	activeID    *int64
	consumers   int
	sub         *Subscription
	onFinish    map[int]FinishFunc
	nextFinish  int
	stopObserve func()
}

// NewTracker wires a Tracker to store and client.
func NewTracker(store *Store, client *StreamClient, cache *LogCache, logger telemetry.Logger) *Tracker {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	t := &Tracker{store: store, client: client, cache: cache, logger: logger, onFinish: map[int]FinishFunc{}}
	t.activeID = store.Active().FileID
	t.stopObserve = store.Observe(t.observe)
	client.Listen(t.onEntry)
	return t
}

// OnFinish registers fn for terminal entries of the active job and returns
// a function that removes it.
func (t *Tracker) OnFinish(fn FinishFunc) (cancel func()) {
	t.mu.Lock()
	key := t.nextFinish
	t.nextFinish++
	t.onFinish[key] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.onFinish, key)
		t.mu.Unlock()
	}
}

// Attach registers a consumer and opens the stream for the active job if
// none is open. The returned function detaches; the last detach closes the
// stream but leaves the store and log cache alone.
func (t *Tracker) Attach() (detach func()) {
	t.mu.Lock()
	t.consumers++
	if t.activeID != nil && !t.liveLocked() {
		t.subscribeLocked(*t.activeID)
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.consumers--
			if t.consumers == 0 && t.sub != nil {
				t.client.Unsubscribe(t.sub)
				t.sub = nil
			}
		})
	}
}

// OnActiveJobChanged cancels the open subscription, drops the unfinished
// log of a replaced job and subscribes to newID when a consumer is attached.
func (t *Tracker) OnActiveJobChanged(oldID, newID *int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		t.client.Unsubscribe(t.sub)
		t.sub = nil
	}
	if oldID != nil && !sameID(oldID, newID) && t.cache != nil {
		t.cache.Evict(*oldID)
	}
	t.activeID = copyID(newID)
	if newID != nil && t.consumers > 0 {
		t.subscribeLocked(*newID)
	}
}

// Subscription returns the open subscription, or nil.
func (t *Tracker) Subscription() *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sub
}

// Close stops observing the store and closes the stream.
func (t *Tracker) Close() {
	t.mu.Lock()
	stop := t.stopObserve
	t.stopObserve = nil
	if t.sub != nil {
		t.client.Unsubscribe(t.sub)
		t.sub = nil
	}
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (t *Tracker) subscribeLocked(fileID int64) {
	sub, err := t.client.Subscribe(fileID)
	if err != nil {
		t.logger.Warn("processing.subscribe_failed", map[string]any{"file_id": fileID, "error": err.Error()})
		return
	}
	t.sub = sub
	go t.forget(sub)
}

// forget drops the handle once its stream has ended so the same job can be
// subscribed again.
func (t *Tracker) forget(sub *Subscription) {
	<-sub.Done()
	t.mu.Lock()
	if t.sub == sub {
		t.sub = nil
	}
	t.mu.Unlock()
}

// liveLocked reports whether the held subscription is still the client's
// open stream.
func (t *Tracker) liveLocked() bool {
	return t.sub != nil && t.client.Current() == t.sub
}

func (t *Tracker) observe(job Job) {
	t.mu.Lock()
	old := copyID(t.activeID)
	if sameID(old, job.FileID) {
		// Re-triggering the same job reopens a stream that was lost.
		if job.FileID != nil && t.consumers > 0 && !t.liveLocked() {
			t.subscribeLocked(*job.FileID)
		}
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.OnActiveJobChanged(old, job.FileID)
}

func (t *Tracker) onEntry(fileID int64, entry LogEntry) {
	if !entry.Terminal() || !t.store.Active().IsActive(fileID) {
		return
	}
	t.mu.Lock()
	keys := make([]int, 0, len(t.onFinish))
	for k := range t.onFinish {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	handlers := make([]FinishFunc, 0, len(keys))
	for _, k := range keys {
		handlers = append(handlers, t.onFinish[k])
	}
	t.mu.Unlock()
	for _, fn := range handlers {
		fn(fileID, entry)
	}
	if entry.Local {
		return
	}
	// A handler may already have started the next job.
	t.store.ClearIf(fileID)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
