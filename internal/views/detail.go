package views

import (
	"context"
	"sync"

	"lasdesk/internal/client"
	"lasdesk/internal/events"
	"lasdesk/internal/processing"
)

// DetailState distinguishes a pending lookup from a confirmed miss.
type DetailState int

const (
	DetailLoading DetailState = iota
	DetailFound
	DetailNotFound
)

func (s DetailState) String() string {
	switch s {
	case DetailFound:
		return "found"
	case DetailNotFound:
		return "not_found"
	default:
		return "loading"
	}
}

// DetailModel is the rendered state of the detail view.
type DetailModel struct {
	State         DetailState
	File          client.FileRecord
	Err           error
	Active        bool
	Progress      int
	Logs          []processing.LogEntry
	InsertPercent *int
	CanProcess    bool
}

// DetailView shows one file. It starts Loading unless the caller already
// holds the record, and only reports NotFound after a completed lookup.
type DetailView struct {
	deps   Deps
	fileID int64

	mu       sync.Mutex
	state    DetailState
	file     client.FileRecord
	err      error
	done     bool
	onChange func()

	detach      func()
	stopObserve func()
	stopFinish  func()
}

// NewDetailView constructs a view of fileID. known may be nil.
func NewDetailView(deps Deps, fileID int64, known *client.FileRecord) *DetailView {
	dv := &DetailView{deps: deps, fileID: fileID, state: DetailLoading}
	if known != nil && known.ID == fileID {
		dv.file = *known
		dv.state = DetailFound
	}
	return dv
}

// FileID returns the id the view was opened for.
func (dv *DetailView) FileID() int64 { return dv.fileID }

// OnChange registers fn to run after every state change.
func (dv *DetailView) OnChange(fn func()) {
	dv.mu.Lock()
	dv.onChange = fn
	dv.mu.Unlock()
}

// Mount attaches to the processing stream and resolves the record when
// the caller did not provide it.
func (dv *DetailView) Mount(ctx context.Context) error {
	dv.mu.Lock()
	if dv.detach == nil {
		if dv.deps.Tracker != nil {
			dv.stopFinish = dv.deps.Tracker.OnFinish(dv.onFinish)
			dv.detach = dv.deps.Tracker.Attach()
		} else {
			dv.detach = func() {}
		}
		if dv.deps.Store != nil {
			dv.stopObserve = dv.deps.Store.Observe(dv.observe)
		}
	}
	state := dv.state
	dv.mu.Unlock()

	if dv.deps.Cache != nil {
		if last, ok := dv.deps.Cache.Last(dv.fileID); ok && last.Step == events.StepDone {
			dv.markProcessed()
		}
	}
	if state != DetailLoading {
		return nil
	}
	return dv.Load(ctx)
}

// Unmount detaches the view. The active job and its logs are kept.
func (dv *DetailView) Unmount() {
	dv.mu.Lock()
	detach, stop, stopFinish := dv.detach, dv.stopObserve, dv.stopFinish
	dv.detach, dv.stopObserve, dv.stopFinish = nil, nil, nil
	dv.mu.Unlock()
	if stop != nil {
		stop()
	}
	if stopFinish != nil {
		stopFinish()
	}
	if detach != nil {
		detach()
	}
}

// Load looks the file up in the visible list, then in the trash. A failed
// request leaves the view Loading with the error recorded.
func (dv *DetailView) Load(ctx context.Context) error {
	for _, filter := range []client.Filter{{}, {Status: client.StatusDeleted}} {
		files, err := dv.deps.API.ListFiles(ctx, filter)
		if err != nil {
			dv.mu.Lock()
			dv.err = err
			dv.mu.Unlock()
			if dv.deps.Notifier != nil {
				dv.deps.Notifier.Error("Failed to load file: " + client.Detail(err))
			}
			dv.changed()
			return err
		}
		for _, f := range files {
			if f.ID == dv.fileID {
				dv.mu.Lock()
				if dv.done {
					f.Processed = true
				}
				dv.file, dv.state, dv.err = f, DetailFound, nil
				dv.mu.Unlock()
				dv.changed()
				return nil
			}
		}
	}
	dv.mu.Lock()
	dv.state, dv.err = DetailNotFound, nil
	dv.mu.Unlock()
	dv.changed()
	return nil
}

// Render returns the current model.
func (dv *DetailView) Render() DetailModel {
	dv.mu.Lock()
	m := DetailModel{State: dv.state, File: dv.file, Err: dv.err}
	dv.mu.Unlock()
	if m.State != DetailFound {
		return m
	}
	if dv.deps.Store != nil {
		m.Active, m.Progress, m.Logs, m.InsertPercent = activeState(dv.deps.Store, dv.deps.Cache, dv.fileID)
	}
	m.CanProcess = !m.File.Processed && !m.Active
	return m
}

// Process starts processing the viewed file.
func (dv *DetailView) Process(ctx context.Context) error {
	m := dv.Render()
	if m.State == DetailFound && m.File.Processed {
		if dv.deps.Notifier != nil {
			dv.deps.Notifier.Success("File already processed")
		}
		return nil
	}
	status, err := startProcessing(ctx, dv.deps.API, dv.deps.Store, dv.deps.Notifier, dv.fileID)
	if err != nil {
		return err
	}
	if status.AlreadyProcessed {
		dv.markProcessed()
	}
	dv.changed()
	return nil
}

func (dv *DetailView) observe(job processing.Job) {
	if job.IsActive(dv.fileID) && job.Progress >= 100 {
		dv.markProcessed()
	}
	dv.changed()
}

func (dv *DetailView) onFinish(fileID int64, entry processing.LogEntry) {
	if fileID != dv.fileID {
		return
	}
	if entry.Step == events.StepDone {
		dv.markProcessed()
	}
	dv.changed()
}

func (dv *DetailView) markProcessed() {
	dv.mu.Lock()
	dv.done = true
	dv.file.Processed = dv.state == DetailFound || dv.file.Processed
	dv.mu.Unlock()
}

func (dv *DetailView) changed() {
	dv.mu.Lock()
	fn := dv.onChange
	dv.mu.Unlock()
	if fn != nil {
		fn()
	}
}
