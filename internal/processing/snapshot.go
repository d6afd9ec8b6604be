package processing

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotKey names the persisted processing state.
const SnapshotKey = "processing_state"

// ErrNoSnapshot is returned by Load when nothing usable is stored.
var ErrNoSnapshot = errors.New("processing: no snapshot")

// Snapshot is the durable form of the active job.
type Snapshot struct {
	ProcessingFileID *int64 `json:"processingFileId"`
	Progress         int    `json:"progress"`
}

// SnapshotStore persists the active job between runs. Store treats every
// error as "no prior state".
type SnapshotStore interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Clear() error
}

// DecodeSnapshot parses a stored snapshot. A missing or non-integer file id
// is rejected; progress is clamped to [0,100].
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var raw struct {
		ProcessingFileID json.RawMessage `json:"processingFileId"`
		Progress         json.RawMessage `json:"progress"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Snapshot{}, err
	}
	id, ok := integer(raw.ProcessingFileID)
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	snap := Snapshot{ProcessingFileID: &id}
	if p, ok := number(raw.Progress); ok {
		snap.Progress = clamp(int(math.Round(p)))
	}
	return snap, nil
}

func integer(raw json.RawMessage) (int64, bool) {
	n, ok := rawNumber(raw)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	return v, err == nil
}

func number(raw json.RawMessage) (float64, bool) {
	n, ok := rawNumber(raw)
	if !ok {
		return 0, false
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// rawNumber accepts bare JSON numbers only; quoted digits are not a number.
func rawNumber(raw json.RawMessage) (json.Number, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return "", false
	}
	return n, true
}

func clamp(p int) int {
	return max(0, min(100, p))
}

// FileSnapshotStore keeps the snapshot as JSON in Dir/processing_state.json.
type FileSnapshotStore struct {
	Dir string
}

// NewFileSnapshotStore constructs a FileSnapshotStore rooted at dir.
func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{Dir: dir}
}

func (s *FileSnapshotStore) path() string {
	return filepath.Join(s.Dir, SnapshotKey+".json")
}

func (s *FileSnapshotStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, err
	}
	return DecodeSnapshot(data)
}

func (s *FileSnapshotStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

func (s *FileSnapshotStore) Clear() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemorySnapshotStore holds the raw snapshot bytes in memory.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	raw  []byte
	Fail error
}

// NewMemorySnapshotStore constructs a MemorySnapshotStore seeded with raw.
func NewMemorySnapshotStore(raw string) *MemorySnapshotStore {
	m := &MemorySnapshotStore{}
	if raw != "" {
		m.raw = []byte(raw)
	}
	return m
}

func (m *MemorySnapshotStore) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return Snapshot{}, m.Fail
	}
	if m.raw == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return DecodeSnapshot(m.raw)
}

func (m *MemorySnapshotStore) Save(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.raw = data
	return nil
}

func (m *MemorySnapshotStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.raw = nil
	return nil
}

// Raw returns the stored bytes, or nil when cleared.
func (m *MemorySnapshotStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raw == nil {
		return nil
	}
	return append([]byte(nil), m.raw...)
}
