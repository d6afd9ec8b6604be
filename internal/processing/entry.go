// Package processing tracks the single active processing job on the client:
// its progress, its live log stream and the state that survives restarts.
package processing

import "lasdesk/internal/events"

// LostConnectionMessage is the synthetic entry recorded when the event
// stream drops without the client asking it to.
const LostConnectionMessage = "connection to the event stream was lost"

// LogEntry is one line of a job's log as received from the stream.
type LogEntry struct {
	Message  string
	Step     events.Step
	Inserted *int64
	Total    *int64
	// Local marks entries produced by the client rather than the server.
	Local bool
}

// Terminal reports whether the entry ends its job.
func (e LogEntry) Terminal() bool {
	return e.Step.Terminal()
}

// InsertPercent is the row-insert ratio in percent when both counts are known.
func (e LogEntry) InsertPercent() (int, bool) {
	if e.Inserted == nil || e.Total == nil || *e.Total <= 0 || *e.Inserted < 0 {
		return 0, false
	}
	pct := int(*e.Inserted * 100 / *e.Total)
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

func entryFromEvent(ev events.ProcessLog) LogEntry {
	return LogEntry{Message: ev.Message, Step: ev.Step, Inserted: ev.Inserted, Total: ev.Total}
}
