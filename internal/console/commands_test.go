package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"lasdesk/internal/events"
	"lasdesk/internal/files"
	"lasdesk/internal/jobs"
	"lasdesk/internal/shared/config"
	"lasdesk/internal/shared/server"
	localstore "lasdesk/internal/shared/storage/object/local"
	"lasdesk/internal/wells"
)

const sampleLAS = `~Version Information
 VERS.   2.0 : CWLS LOG ASCII STANDARD
~Well Information
 NULL.   -999.25 : NULL VALUE
 WELL.   DEMO-1  : WELL
~Curve Information
 DEPT.M  : DEPTH
 GR.GAPI : GAMMA RAY
~A
100.0 45.0
100.5 46.0
`

type declineAll struct{ asked int }

func (d *declineAll) Confirm(context.Context, string, string) (bool, error) {
	d.asked++
	return false, nil
}

type harness struct {
	t        *testing.T
	env      map[string]string
	stateDir string
	files    *files.MemoryRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	broker := events.NewMemoryBroker()
	wellSvc := &wells.Service{Repo: wells.NewMemoryRepo(), Curves: wells.NewMemoryCurves()}
	fileRepo := files.NewMemoryRepo()
	store := localstore.New(t.TempDir())
	runner := &jobs.Runner{Files: fileRepo, Wells: wellSvc, Curves: wellSvc.Curves, Store: store, Events: broker}
	dispatcher := jobs.NewLocalDispatcher(runner, broker)
	fileSvc := &files.Service{Repo: fileRepo, Wells: wellSvc, Store: store, Processor: dispatcher, Events: broker}

	srv := httptest.NewServer(server.NewRouter(server.RouterDeps{
		Config:       config.Config{},
		FilesHandler: files.NewHandler(fileSvc, 5),
		WellsHandler: wells.NewHandler(wellSvc),
		EventHandler: events.NewHandler(broker),
	}))
	t.Cleanup(func() {
		dispatcher.Wait()
		srv.Close()
		_ = broker.Close()
	})

	stateDir := t.TempDir()
	return &harness{
		t:        t,
		stateDir: stateDir,
		files:    fileRepo,
		env: map[string]string{
			"LASDESK_API_URL":       srv.URL,
			"LASDESK_STATE_DIR":     stateDir,
			"LASDESK_TIMEOUT":       "5s",
			"LASDESK_LOG_LEVEL":     "error",
			"LASDESK_LOG_RETENTION": "1m",
			"LASDESK_POLL_INTERVAL": "50ms",
		},
	}
}

func (h *harness) run(confirm *declineAll, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	opts := Options{Out: &out, Err: io.Discard, Lookuper: envconfig.MapLookuper(h.env)}
	if confirm != nil {
		opts.Confirmer = confirm
	}
	err := New(opts).Execute(context.Background(), args)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(nil, args...)
	if err != nil {
		h.t.Fatalf("lasctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (h *harness) upload(name string) {
	h.t.Helper()
	path := filepath.Join(h.t.TempDir(), name)
	if err := os.WriteFile(path, []byte(sampleLAS), 0o600); err != nil {
		h.t.Fatalf("write: %v", err)
	}
	h.mustRun("files", "upload", path)
}

func TestUploadListAndShow(t *testing.T) {
	h := newHarness(t)
	h.upload("well.las")
	h.upload("well.las")

	out := h.mustRun("files", "list")
	if !strings.Contains(out, "well.las") || !strings.Contains(out, "well (1).las") {
		t.Fatalf("unexpected list:\n%s", out)
	}
	if !strings.Contains(out, "unprocessed") {
		t.Fatalf("expected unprocessed state:\n%s", out)
	}

	out = h.mustRun("files", "show", "1")
	if !strings.Contains(out, "Well:      DEMO-1") || !strings.Contains(out, "Processed: false") {
		t.Fatalf("unexpected detail:\n%s", out)
	}

	out, err := h.run(nil, "files", "show", "99")
	if err == nil || !strings.Contains(out, "File not found") {
		t.Fatalf("expected not found, got %v:\n%s", err, out)
	}
}

func TestArchiveRestoreAndPurge(t *testing.T) {
	h := newHarness(t)
	h.upload("a.las")
	h.upload("b.las")

	out := h.mustRun("files", "archive", "1", "2")
	if !strings.Contains(out, "Archived 2 files") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if out := h.mustRun("files", "list"); !strings.Contains(out, "no files") {
		t.Fatalf("expected empty active list:\n%s", out)
	}
	if out := h.mustRun("files", "list", "--status", "archived"); !strings.Contains(out, "a.las") {
		t.Fatalf("expected archived files:\n%s", out)
	}

	h.mustRun("files", "restore", "2")
	h.mustRun("files", "delete", "--yes", "1")
	out = h.mustRun("files", "purge", "--yes", "1")
	if !strings.Contains(out, "File permanently deleted") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := h.files.Get(context.Background(), 1); !errors.Is(err, files.ErrNotFound) {
		t.Fatalf("expected file 1 gone, got %v", err)
	}
	if out := h.mustRun("files", "list"); !strings.Contains(out, "b.las") {
		t.Fatalf("expected restored file:\n%s", out)
	}
}

func TestDeclinedDeleteKeepsFile(t *testing.T) {
	h := newHarness(t)
	h.upload("a.las")

	confirm := &declineAll{}
	out, err := h.run(confirm, "files", "delete", "1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if confirm.asked != 1 || !strings.Contains(out, "Cancelled") {
		t.Fatalf("expected one declined prompt, got %d:\n%s", confirm.asked, out)
	}
	if out := h.mustRun("files", "list"); !strings.Contains(out, "a.las") {
		t.Fatalf("expected file kept:\n%s", out)
	}
}

func TestImportantToggle(t *testing.T) {
	h := newHarness(t)
	h.upload("a.las")

	h.mustRun("files", "important", "1")
	if out := h.mustRun("files", "list", "--important"); !strings.Contains(out, "a.las") {
		t.Fatalf("expected important file:\n%s", out)
	}
	if out := h.mustRun("files", "important", "1"); !strings.Contains(out, "Nothing to change") {
		t.Fatalf("expected no-op:\n%s", out)
	}
	h.mustRun("files", "important", "--unset", "1")
	if out := h.mustRun("files", "list", "--important"); !strings.Contains(out, "no files") {
		t.Fatalf("expected no important files:\n%s", out)
	}
}

func TestProcessFollowsJobToCompletion(t *testing.T) {
	h := newHarness(t)
	h.upload("a.las")

	out := h.mustRun("files", "process", "1")
	if !strings.Contains(out, "Processing started") || !strings.Contains(out, "100%") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(h.stateDir, "processing_state.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected snapshot cleared, got %v", err)
	}
	if out := h.mustRun("files", "show", "1"); !strings.Contains(out, "Processed: true") {
		t.Fatalf("expected processed:\n%s", out)
	}
	if out := h.mustRun("files", "process", "1"); !strings.Contains(out, "File already processed") {
		t.Fatalf("expected already processed:\n%s", out)
	}
	if out := h.mustRun("wells", "list"); !strings.Contains(out, "DEMO-1") {
		t.Fatalf("expected well:\n%s", out)
	}
	out = h.mustRun("wells", "interpret", "1")
	if !strings.Contains(out, "GR: min=45.00, max=46.00, mean=45.50") || !strings.Contains(out, "clean sand") {
		t.Fatalf("unexpected interpretation:\n%s", out)
	}
	out = h.mustRun("wells", "data", "1", "--curves", "GR", "--from", "100.5")
	if !strings.Contains(out, "100.5") || strings.Contains(out, "\n       100 ") || !strings.Contains(out, "46") {
		t.Fatalf("unexpected curve data:\n%s", out)
	}
}

func TestWatchResumesFromSnapshot(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(nil, "files", "watch"); !errors.Is(err, ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob, got %v", err)
	}

	h.upload("a.las")
	h.mustRun("files", "process", "--detach", "1")
	waitProcessed(t, h, 1)

	// Simulate a restart while the job was still running.
	snapshot := []byte(`{"processingFileId":1,"progress":40}`)
	if err := os.WriteFile(filepath.Join(h.stateDir, "processing_state.json"), snapshot, 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	out := h.mustRun("files", "watch")
	if !strings.Contains(out, "Watching file 1") || !strings.Contains(out, "already processed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(h.stateDir, "processing_state.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected snapshot cleared, got %v", err)
	}
}

func waitProcessed(t *testing.T, h *harness, id int64) {
	t.Helper()
	for i := 0; i < 200; i++ {
		f, err := h.files.Get(context.Background(), id)
		if err == nil && f.Processed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %d never processed", id)
}
