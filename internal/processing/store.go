package processing

import (
	"errors"
	"sort"
	"sync"

	"lasdesk/internal/shared/telemetry"
)

// Job is the single tracked processing job. A nil FileID means idle.
type Job struct {
	FileID   *int64
	Progress int
}

// IsActive reports whether the job is bound to fileID.
func (j Job) IsActive(fileID int64) bool {
	return j.FileID != nil && *j.FileID == fileID
}

// Store owns the active job. Every change is persisted best-effort to a
// SnapshotStore and pushed synchronously to observers in write order.
// Observers must not write to the Store from inside the callback.
type Store struct {
	snapshots SnapshotStore
	logger    telemetry.Logger

	mu  sync.RWMutex
	job Job

	notifyMu  sync.Mutex
	obsMu     sync.Mutex
	observers map[int]func(Job)
	nextObs   int
}

// NewStore restores the last snapshot, if it is well formed.
func NewStore(snapshots SnapshotStore, logger telemetry.Logger) *Store {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	s := &Store{snapshots: snapshots, logger: logger, observers: map[int]func(Job){}}
	if snapshots == nil {
		return s
	}
	snap, err := snapshots.Load()
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			logger.Debug("processing.snapshot_load_failed", map[string]any{"error": err.Error()})
		}
		return s
	}
	if snap.ProcessingFileID != nil {
		id := *snap.ProcessingFileID
		s.job = Job{FileID: &id, Progress: clamp(snap.Progress)}
	}
	return s
}

// Active returns a copy of the current job.
func (s *Store) Active() Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyJob(s.job)
}

// SetActive replaces the job. A nil fileID clears it and the snapshot.
func (s *Store) SetActive(fileID *int64, progress int) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	var next Job
	if fileID != nil {
		id := *fileID
		next = Job{FileID: &id, Progress: clamp(progress)}
	}
	s.mu.Lock()
	s.job = next
	s.mu.Unlock()

	s.persist(next)
	s.notify(next)
}

// ClearIf clears the job and the snapshot only while fileID is still the
// active job. It reports false when another job has taken its place.
func (s *Store) ClearIf(fileID int64) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.job.IsActive(fileID) {
		s.mu.Unlock()
		return false
	}
	s.job = Job{}
	s.mu.Unlock()

	s.persist(Job{})
	s.notify(Job{})
	return true
}

// Advance raises the progress of fileID if it is still the active job. It
// reports false when the job changed or the value would not increase.
func (s *Store) Advance(fileID int64, progress int) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	progress = clamp(progress)
	s.mu.Lock()
	if !s.job.IsActive(fileID) || progress <= s.job.Progress {
		s.mu.Unlock()
		return false
	}
	s.job.Progress = progress
	next := copyJob(s.job)
	s.mu.Unlock()

	s.persist(next)
	s.notify(next)
	return true
}

// Observe registers fn for every change and returns a function that
// removes it.
func (s *Store) Observe(fn func(Job)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) persist(job Job) {
	if s.snapshots == nil {
		return
	}
	var err error
	if job.FileID == nil {
		err = s.snapshots.Clear()
	} else {
		err = s.snapshots.Save(Snapshot{ProcessingFileID: job.FileID, Progress: job.Progress})
	}
	if err != nil {
		s.logger.Debug("processing.snapshot_write_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Store) notify(job Job) {
	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Job), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(copyJob(job))
	}
}

func copyJob(j Job) Job {
	if j.FileID == nil {
		return Job{Progress: j.Progress}
	}
	id := *j.FileID
	return Job{FileID: &id, Progress: j.Progress}
}
