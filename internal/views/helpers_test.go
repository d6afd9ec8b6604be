package views

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"lasdesk/internal/client"
	"lasdesk/internal/processing"
)

var errBoom = errors.New("boom")

type fakeAPI struct {
	mu        sync.Mutex
	files     map[int64]client.FileRecord
	fail      map[string]error
	calls     map[string]int
	processed map[int64]bool
	onProcess func(id int64)
}

func newFakeAPI(files ...client.FileRecord) *fakeAPI {
	api := &fakeAPI{
		files:     make(map[int64]client.FileRecord),
		fail:      make(map[string]error),
		calls:     make(map[string]int),
		processed: make(map[int64]bool),
	}
	for _, f := range files {
		api.files[f.ID] = f
	}
	return api
}

func (a *fakeAPI) record(method string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[method]++
	return a.fail[method]
}

func (a *fakeAPI) count(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

func (a *fakeAPI) ListFiles(_ context.Context, filter client.Filter) ([]client.FileRecord, error) {
	if err := a.record("ListFiles"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []client.FileRecord
	for _, f := range a.files {
		if matches(filter, f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *fakeAPI) StartProcessing(_ context.Context, id int64) (client.ProcessStatus, error) {
	if a.onProcess != nil {
		a.onProcess(id)
	}
	if err := a.record("StartProcessing"); err != nil {
		return client.ProcessStatus{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.processed[id] {
		return client.ProcessStatus{FileID: id, AlreadyProcessed: true}, nil
	}
	return client.ProcessStatus{FileID: id, Started: true}, nil
}

func (a *fakeAPI) PatchFile(_ context.Context, id int64, patch client.FilePatch) (client.FileRecord, error) {
	if err := a.record("PatchFile"); err != nil {
		return client.FileRecord{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.files[id]
	applyPatch(&f, patch)
	a.files[id] = f
	return f, nil
}

func (a *fakeAPI) BulkPatch(_ context.Context, ids []int64, patch client.FilePatch) (int, error) {
	if err := a.record("BulkPatch"); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		f := a.files[id]
		applyPatch(&f, patch)
		a.files[id] = f
	}
	return len(ids), nil
}

func (a *fakeAPI) DeletePermanent(_ context.Context, id int64) error {
	if err := a.record("DeletePermanent"); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.files, id)
	a.mu.Unlock()
	return nil
}

func (a *fakeAPI) BulkDeletePermanent(_ context.Context, ids []int64) (int, error) {
	if err := a.record("BulkDeletePermanent"); err != nil {
		return 0, err
	}
	a.mu.Lock()
	for _, id := range ids {
		delete(a.files, id)
	}
	a.mu.Unlock()
	return len(ids), nil
}

func applyPatch(f *client.FileRecord, patch client.FilePatch) {
	if patch.Status != nil {
		f.Status = *patch.Status
	}
	if patch.IsImportant != nil {
		f.IsImportant = *patch.IsImportant
	}
}

type toasts struct {
	mu      sync.Mutex
	success []string
	errors  []string
}

func (t *toasts) Success(msg string) {
	t.mu.Lock()
	t.success = append(t.success, msg)
	t.mu.Unlock()
}

func (t *toasts) Error(msg string) {
	t.mu.Lock()
	t.errors = append(t.errors, msg)
	t.mu.Unlock()
}

func (t *toasts) lastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errors) == 0 {
		return ""
	}
	return t.errors[len(t.errors)-1]
}

func (t *toasts) lastSuccess() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.success) == 0 {
		return ""
	}
	return t.success[len(t.success)-1]
}

type answer struct {
	ok     bool
	err    error
	titles []string
}

func (a *answer) Confirm(_ context.Context, title, _ string) (bool, error) {
	a.titles = append(a.titles, title)
	return a.ok, a.err
}

type fixture struct {
	api     *fakeAPI
	toasts  *toasts
	confirm *answer
	store   *processing.Store
	cache   *processing.LogCache
	deps    Deps
}

func newFixture(t *testing.T, files ...client.FileRecord) *fixture {
	t.Helper()
	cache, err := processing.NewLogCache(8, time.Minute)
	if err != nil {
		t.Fatalf("log cache: %v", err)
	}
	fx := &fixture{
		api:     newFakeAPI(files...),
		toasts:  &toasts{},
		confirm: &answer{ok: true},
		store:   processing.NewStore(processing.NewMemorySnapshotStore(""), nil),
		cache:   cache,
	}
	fx.deps = Deps{
		API:         fx.api,
		Coordinator: NewCoordinator(fx.toasts, fx.confirm, nil),
		Notifier:    fx.toasts,
		Store:       fx.store,
		Cache:       fx.cache,
	}
	return fx
}

func file(id int64, name string) client.FileRecord {
	return client.FileRecord{ID: id, FileName: name, WellName: "DEMO-1", Status: client.StatusActive}
}

func loadedList(t *testing.T, fx *fixture) *ListView {
	t.Helper()
	lv := NewListView(fx.deps)
	if err := lv.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return lv
}

func containsText(s, sub string) bool { return strings.Contains(s, sub) }

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", msg)
}
