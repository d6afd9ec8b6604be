package processing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeSnapshot(t *testing.T) {
	cases := []struct {
		raw      string
		wantID   *int64
		progress int
	}{
		{`{"processingFileId":7,"progress":42}`, id(7), 42},
		{`{"processingFileId":7,"progress":142}`, id(7), 100},
		{`{"processingFileId":7,"progress":-5}`, id(7), 0},
		{`{"processingFileId":7,"progress":42.6}`, id(7), 43},
		{`{"processingFileId":7}`, id(7), 0},
		{`{"processingFileId":7,"progress":"lots"}`, id(7), 0},
		{`{"processingFileId":"abc","progress":42}`, nil, 0},
		{`{"processingFileId":"7","progress":42}`, nil, 0},
		{`{"processingFileId":7.5,"progress":42}`, nil, 0},
		{`{"processingFileId":null,"progress":42}`, nil, 0},
		{`{"progress":42}`, nil, 0},
		{`not json`, nil, 0},
	}
	for _, tc := range cases {
		snap, err := DecodeSnapshot([]byte(tc.raw))
		if tc.wantID == nil {
			if err == nil {
				t.Fatalf("%s: expected rejection, got %+v", tc.raw, snap)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.raw, err)
		}
		if snap.ProcessingFileID == nil || *snap.ProcessingFileID != *tc.wantID || snap.Progress != tc.progress {
			t.Fatalf("%s: got %+v", tc.raw, snap)
		}
	}
}

func TestFileSnapshotStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store := NewFileSnapshotStore(dir)

	if _, err := store.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if err := store.Save(Snapshot{ProcessingFileID: id(11), Progress: 35}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := store.Load()
	if err != nil || *snap.ProcessingFileID != 11 || snap.Progress != 35 {
		t.Fatalf("load: %+v %v", snap, err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "processing_state.json")); !os.IsNotExist(err) {
		t.Fatalf("expected snapshot file removed, got %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clearing twice must succeed: %v", err)
	}
}
