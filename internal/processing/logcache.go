package processing

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultLogCacheSize bounds how many jobs keep a log buffer.
	DefaultLogCacheSize = 64
	// DefaultLogGCDelay is how long a finished job's log stays readable.
	DefaultLogGCDelay = 2 * time.Second
)

type jobLog struct {
	entries  []LogEntry
	terminal bool
	stopGC   func() bool
}

// LogCache buffers log entries per file id independent of any view, so a
// remounted view can show what was already received.
type LogCache struct {
	mu      sync.Mutex
	logs    *lru.Cache[int64, *jobLog]
	gcDelay time.Duration

	// schedule runs fn after d and returns a stop function.
	schedule func(d time.Duration, fn func()) func() bool
}

// NewLogCache constructs a LogCache holding at most size jobs.
func NewLogCache(size int, gcDelay time.Duration) (*LogCache, error) {
	if size <= 0 {
		size = DefaultLogCacheSize
	}
	if gcDelay <= 0 {
		gcDelay = DefaultLogGCDelay
	}
	logs, err := lru.New[int64, *jobLog](size)
	if err != nil {
		return nil, err
	}
	return &LogCache{
		logs:    logs,
		gcDelay: gcDelay,
		schedule: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
	}, nil
}

// Append records e for fileID. A done or error entry from the server
// schedules removal of the whole buffer; a later non-terminal entry cancels
// it. A local lost-connection entry is recorded but keeps the history, since
// the job is still running and a resubscribe resumes it.
func (c *LogCache) Append(fileID int64, e LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.logs.Get(fileID)
	if !ok {
		l = &jobLog{}
		c.logs.Add(fileID, l)
	}
	if l.terminal && !e.Terminal() {
		if l.stopGC != nil {
			l.stopGC()
		}
		l.stopGC = nil
		l.terminal = false
	}
	l.entries = append(l.entries, e)
	if finishes(e) && !l.terminal {
		l.terminal = true
		l.stopGC = c.schedule(c.gcDelay, func() { c.expire(fileID, l) })
	}
}

func finishes(e LogEntry) bool { return e.Terminal() && !e.Local }

func (c *LogCache) expire(fileID int64, l *jobLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.logs.Peek(fileID); ok && cur == l && l.terminal {
		c.logs.Remove(fileID)
	}
}

// Entries returns a copy of the buffered entries for fileID.
func (c *LogCache) Entries(fileID int64) []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.logs.Peek(fileID)
	if !ok {
		return nil
	}
	return append([]LogEntry(nil), l.entries...)
}

// Last returns the most recent entry for fileID.
func (c *LogCache) Last(fileID int64) (LogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.logs.Peek(fileID)
	if !ok || len(l.entries) == 0 {
		return LogEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Evict drops the buffer of a job that never reached a terminal step.
// Finished jobs are left to their scheduled removal.
func (c *LogCache) Evict(fileID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.logs.Peek(fileID)
	if !ok || l.terminal {
		return false
	}
	return c.logs.Remove(fileID)
}

// Len is the number of buffered jobs.
func (c *LogCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logs.Len()
}
