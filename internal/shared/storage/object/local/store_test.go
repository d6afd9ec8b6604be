package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lasdesk/internal/shared/storage/object"
)

func TestStoreSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	n, err := store.Save(ctx, "wells/1/abc_well.las", strings.NewReader("~VERSION"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("~VERSION")) {
		t.Fatalf("expected %d bytes, got %d", len("~VERSION"), n)
	}

	rc, err := store.Open(ctx, "wells/1/abc_well.las")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "~VERSION" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, "wells/1/abc_well.las"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "wells/1/abc_well.las"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, "wells/1/abc_well.las"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../escape.las", "/abs/path.las", "."} {
		if _, err := store.Save(context.Background(), key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for key %q, got %v", key, err)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestStoreSaveFailureLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	if _, err := store.Save(ctx, "wells/2/a.las", failingReader{}); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := store.Open(ctx, "wells/2/a.las"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "wells", "2"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover temp files, got %d", len(entries))
	}
}
