package processing

import (
	"errors"
	"testing"
)

func TestStoreRestoresSnapshot(t *testing.T) {
	store := NewStore(NewMemorySnapshotStore(`{"processingFileId":7,"progress":42}`), nil)
	job := store.Active()
	if job.FileID == nil || *job.FileID != 7 || job.Progress != 42 {
		t.Fatalf("expected {7,42}, got %+v", job)
	}

	store = NewStore(NewMemorySnapshotStore(`{"processingFileId":"abc","progress":42}`), nil)
	job = store.Active()
	if job.FileID != nil || job.Progress != 0 {
		t.Fatalf("expected {nil,0}, got %+v", job)
	}

	failing := NewMemorySnapshotStore("")
	failing.Fail = errors.New("disk gone")
	if job := NewStore(failing, nil).Active(); job.FileID != nil {
		t.Fatalf("expected no job when snapshot unreadable, got %+v", job)
	}
}

func TestStoreSetActivePersistsAndClamps(t *testing.T) {
	snaps := NewMemorySnapshotStore("")
	store := NewStore(snaps, nil)

	store.SetActive(id(3), 250)
	if job := store.Active(); *job.FileID != 3 || job.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %+v", job)
	}
	restored := NewStore(snaps, nil).Active()
	if restored.FileID == nil || *restored.FileID != 3 || restored.Progress != 100 {
		t.Fatalf("expected snapshot persisted, got %+v", restored)
	}

	store.SetActive(nil, 80)
	if job := store.Active(); job.FileID != nil || job.Progress != 0 {
		t.Fatalf("expected cleared job, got %+v", job)
	}
	if snaps.Raw() != nil {
		t.Fatalf("expected snapshot cleared, got %s", snaps.Raw())
	}
}

func TestStoreSwallowsSnapshotWriteFailures(t *testing.T) {
	snaps := NewMemorySnapshotStore("")
	snaps.Fail = errors.New("read-only")
	store := NewStore(snaps, nil)

	store.SetActive(id(9), 10)
	if job := store.Active(); job.FileID == nil || *job.FileID != 9 {
		t.Fatalf("in-memory state must update despite write failure, got %+v", job)
	}
}

func TestStoreNotifiesObserversInOrder(t *testing.T) {
	store := NewStore(nil, nil)
	var seen []Job
	cancel := store.Observe(func(j Job) { seen = append(seen, j) })

	store.SetActive(id(1), 0)
	store.Advance(1, 40)
	store.SetActive(id(2), 5)
	cancel()
	store.SetActive(nil, 0)

	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	if *seen[0].FileID != 1 || seen[1].Progress != 40 || *seen[2].FileID != 2 {
		t.Fatalf("unexpected notifications %+v", seen)
	}
}

func TestStoreAdvanceIsMonotonicPerJob(t *testing.T) {
	store := NewStore(nil, nil)
	store.SetActive(id(4), 0)

	if !store.Advance(4, 65) {
		t.Fatalf("expected advance to 65")
	}
	if store.Advance(4, 40) {
		t.Fatalf("advance must not lower progress")
	}
	if store.Advance(5, 90) {
		t.Fatalf("advance must ignore other jobs")
	}
	if job := store.Active(); job.Progress != 65 {
		t.Fatalf("expected 65, got %d", job.Progress)
	}

	store.SetActive(id(6), 0)
	if job := store.Active(); job.Progress != 0 {
		t.Fatalf("progress resets on job change, got %d", job.Progress)
	}
}
