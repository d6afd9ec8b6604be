package views

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lasdesk/internal/client"
	"lasdesk/internal/events"
	"lasdesk/internal/processing"
)

// Deps are the collaborators shared by list and detail views.
type Deps struct {
	API         FilesAPI
	Coordinator *Coordinator
	Notifier    Notifier
	Store       *processing.Store
	Cache       *processing.LogCache
	Tracker     *processing.Tracker
}

// ListView holds the file list, the selection and the optimistic patches
// applied to them.
type ListView struct {
	deps Deps

	mu       sync.Mutex
	filter   client.Filter
	files    []client.FileRecord
	selected map[int64]struct{}
	onChange func()

	detach      func()
	stopObserve func()
	stopFinish  func()
}

// NewListView constructs a ListView showing active files.
func NewListView(deps Deps) *ListView {
	lv := &ListView{
		deps:     deps,
		filter:   client.Filter{Status: client.StatusActive},
		selected: make(map[int64]struct{}),
	}
	return lv
}

// OnChange registers fn to run after every state change.
func (lv *ListView) OnChange(fn func()) {
	lv.mu.Lock()
	lv.onChange = fn
	lv.mu.Unlock()
}

// Mount attaches the view to the processing stream.
func (lv *ListView) Mount() {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if lv.detach != nil {
		return
	}
	if lv.deps.Tracker != nil {
		lv.stopFinish = lv.deps.Tracker.OnFinish(lv.onFinish)
		lv.detach = lv.deps.Tracker.Attach()
	} else {
		lv.detach = func() {}
	}
	if lv.deps.Store != nil {
		lv.stopObserve = lv.deps.Store.Observe(func(processing.Job) { lv.changed() })
	}
}

// Unmount detaches the view. The active job and its logs are kept.
func (lv *ListView) Unmount() {
	lv.mu.Lock()
	detach, stop, stopFinish := lv.detach, lv.stopObserve, lv.stopFinish
	lv.detach, lv.stopObserve, lv.stopFinish = nil, nil, nil
	lv.mu.Unlock()
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

// Filter returns the current filter.
func (lv *ListView) Filter() client.Filter {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.filter
}

// SetFilter replaces the filter and reloads.
func (lv *ListView) SetFilter(ctx context.Context, f client.Filter) error {
	lv.mu.Lock()
	lv.filter = f
	lv.mu.Unlock()
	return lv.Load(ctx)
}

// Load fetches the list for the current filter and prunes the selection
// to files still present.
func (lv *ListView) Load(ctx context.Context) error {
	filter := lv.Filter()
	files, err := lv.deps.API.ListFiles(ctx, filter)
	if err != nil {
		if lv.deps.Notifier != nil {
			lv.deps.Notifier.Error("Failed to load files: " + client.Detail(err))
		}
		return err
	}
	lv.mu.Lock()
	lv.files = files
	present := make(map[int64]struct{}, len(files))
	for _, f := range files {
		present[f.ID] = struct{}{}
	}
	for id := range lv.selected {
		if _, ok := present[id]; !ok {
			delete(lv.selected, id)
		}
	}
	lv.mu.Unlock()
	lv.changed()
	return nil
}

// Files returns a copy of the visible files.
func (lv *ListView) Files() []client.FileRecord {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return append([]client.FileRecord(nil), lv.files...)
}

// File returns the visible file with id.
func (lv *ListView) File(id int64) (client.FileRecord, bool) {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	i := lv.indexLocked(id)
	if i < 0 {
		return client.FileRecord{}, false
	}
	return lv.files[i], true
}

// Rows renders every visible file with its selection and processing state.
func (lv *ListView) Rows() []Row {
	lv.mu.Lock()
	files := append([]client.FileRecord(nil), lv.files...)
	selected := make(map[int64]bool, len(lv.selected))
	for id := range lv.selected {
		selected[id] = true
	}
	lv.mu.Unlock()

	rows := make([]Row, 0, len(files))
	for _, f := range files {
		row := Row{File: f, Selected: selected[f.ID]}
		if lv.deps.Store != nil {
			row.Active, row.Progress, row.Logs, row.InsertPercent = activeState(lv.deps.Store, lv.deps.Cache, f.ID)
		}
		row.CanProcess = !f.Processed && !row.Active
		rows = append(rows, row)
	}
	return rows
}

// Select adds ids to the selection. Unknown ids are ignored.
func (lv *ListView) Select(ids ...int64) {
	lv.mu.Lock()
	for _, id := range ids {
		if lv.indexLocked(id) >= 0 {
			lv.selected[id] = struct{}{}
		}
	}
	lv.mu.Unlock()
	lv.changed()
}

// SelectAll selects every visible file.
func (lv *ListView) SelectAll() {
	lv.mu.Lock()
	for _, f := range lv.files {
		lv.selected[f.ID] = struct{}{}
	}
	lv.mu.Unlock()
	lv.changed()
}

// Deselect removes ids from the selection.
func (lv *ListView) Deselect(ids ...int64) {
	lv.mu.Lock()
	for _, id := range ids {
		delete(lv.selected, id)
	}
	lv.mu.Unlock()
	lv.changed()
}

// ClearSelection empties the selection.
func (lv *ListView) ClearSelection() {
	lv.mu.Lock()
	lv.selected = make(map[int64]struct{})
	lv.mu.Unlock()
	lv.changed()
}

// Selected returns the selected ids in ascending order.
func (lv *ListView) Selected() []int64 {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.selectedLocked()
}

// Process starts processing id and tracks it as the active job.
func (lv *ListView) Process(ctx context.Context, id int64) error {
	if f, ok := lv.File(id); ok && f.Processed {
		if lv.deps.Notifier != nil {
			lv.deps.Notifier.Success("File already processed")
		}
		return nil
	}
	status, err := startProcessing(ctx, lv.deps.API, lv.deps.Store, lv.deps.Notifier, id)
	if err != nil {
		return err
	}
	if status.AlreadyProcessed {
		lv.markProcessed(id)
	}
	lv.changed()
	return nil
}

// ToggleImportant flips the important flag, reverting on failure.
func (lv *ListView) ToggleImportant(ctx context.Context, id int64) error {
	f, ok := lv.File(id)
	if !ok {
		return fmt.Errorf("views: file %d not in view", id)
	}
	next := !f.IsImportant
	msg := "Marked as important"
	if !next {
		msg = "Unmarked as important"
	}
	return lv.deps.Coordinator.Run(ctx, Mutation{
		Apply: func() func() { return lv.setImportant([]int64{id}, next) },
		Request: func(ctx context.Context) error {
			_, err := lv.deps.API.PatchFile(ctx, id, client.FilePatch{IsImportant: client.BoolPtr(next)})
			return err
		},
		Success: msg,
		Failure: "Failed to update file",
	})
}

// Archive moves id to archived.
func (lv *ListView) Archive(ctx context.Context, id int64) error {
	return lv.setStatus(ctx, []int64{id}, client.StatusArchived, nil, "File archived", "Failed to archive file")
}

// SoftDelete moves id to the trash after confirmation.
func (lv *ListView) SoftDelete(ctx context.Context, id int64) error {
	confirm := &Confirmation{Title: "Move file to trash?", Detail: lv.describe([]int64{id})}
	return lv.setStatus(ctx, []int64{id}, client.StatusDeleted, confirm, "File moved to trash", "Failed to delete file")
}

// Restore moves id back to active.
func (lv *ListView) Restore(ctx context.Context, id int64) error {
	return lv.setStatus(ctx, []int64{id}, client.StatusActive, nil, "File restored", "Failed to restore file")
}

// DeletePermanent removes id and its stored object after confirmation.
func (lv *ListView) DeletePermanent(ctx context.Context, id int64) error {
	return lv.deps.Coordinator.Run(ctx, Mutation{
		Confirm: &Confirmation{Title: "Delete file permanently?", Detail: lv.describe([]int64{id}) + ". This cannot be undone."},
		Apply:   func() func() { lv.remove([]int64{id}); return nil },
		Request: func(ctx context.Context) error { return lv.deps.API.DeletePermanent(ctx, id) },
		Reload:  lv.Load,
		Success: "File permanently deleted",
		Failure: "Failed to delete file",
	})
}

// BulkSetImportant sets the important flag on every selected file.
func (lv *ListView) BulkSetImportant(ctx context.Context, important bool) error {
	ids := lv.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	return lv.deps.Coordinator.Run(ctx, Mutation{
		Apply: func() func() { return lv.setImportant(ids, important) },
		Request: func(ctx context.Context) error {
			_, err := lv.deps.API.BulkPatch(ctx, ids, client.FilePatch{IsImportant: client.BoolPtr(important)})
			return err
		},
		Success: fmt.Sprintf("Updated %d files", len(ids)),
		Failure: "Failed to update files",
	})
}

// BulkArchive archives every selected file.
func (lv *ListView) BulkArchive(ctx context.Context) error {
	return lv.bulkStatus(ctx, client.StatusArchived, false, "Archived %d files", "Failed to archive files")
}

// BulkSoftDelete moves every selected file to the trash after confirmation.
func (lv *ListView) BulkSoftDelete(ctx context.Context) error {
	return lv.bulkStatus(ctx, client.StatusDeleted, true, "Moved %d files to trash", "Failed to delete files")
}

// BulkRestore restores every selected file.
func (lv *ListView) BulkRestore(ctx context.Context) error {
	return lv.bulkStatus(ctx, client.StatusActive, false, "Restored %d files", "Failed to restore files")
}

// BulkDeletePermanent permanently deletes every selected file after
// confirmation.
func (lv *ListView) BulkDeletePermanent(ctx context.Context) error {
	ids := lv.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	return lv.deps.Coordinator.Run(ctx, Mutation{
		Confirm: &Confirmation{
			Title:  fmt.Sprintf("Delete %d files permanently?", len(ids)),
			Detail: "This cannot be undone.",
		},
		Apply: func() func() { lv.remove(ids); return nil },
		Request: func(ctx context.Context) error {
			_, err := lv.deps.API.BulkDeletePermanent(ctx, ids)
			return err
		},
		Reload:  lv.Load,
		Success: fmt.Sprintf("Permanently deleted %d files", len(ids)),
		Failure: "Failed to delete files",
	})
}

func (lv *ListView) bulkStatus(ctx context.Context, status string, confirm bool, success, failure string) error {
	ids := lv.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	var c *Confirmation
	if confirm {
		c = &Confirmation{Title: fmt.Sprintf("Move %d files to trash?", len(ids)), Detail: lv.describe(ids)}
	}
	return lv.setStatus(ctx, ids, status, c, fmt.Sprintf(success, len(ids)), failure)
}

// setStatus patches status locally, dropping rows the filter no longer
// matches. Failures reload from the server.
func (lv *ListView) setStatus(ctx context.Context, ids []int64, status string, confirm *Confirmation, success, failure string) error {
	return lv.deps.Coordinator.Run(ctx, Mutation{
		Confirm: confirm,
		Apply: func() func() {
			lv.applyStatus(ids, status)
			return nil
		},
		Request: func(ctx context.Context) error {
			patch := client.FilePatch{Status: client.StringPtr(status)}
			if len(ids) == 1 {
				_, err := lv.deps.API.PatchFile(ctx, ids[0], patch)
				return err
			}
			_, err := lv.deps.API.BulkPatch(ctx, ids, patch)
			return err
		},
		Reload:  lv.Load,
		Success: success,
		Failure: failure,
	})
}

func (lv *ListView) applyStatus(ids []int64, status string) {
	set := idSet(ids)
	lv.mu.Lock()
	kept := lv.files[:0]
	for _, f := range lv.files {
		if _, ok := set[f.ID]; ok {
			f.Status = status
		}
		if matches(lv.filter, f) {
			kept = append(kept, f)
		} else {
			delete(lv.selected, f.ID)
		}
	}
	lv.files = kept
	lv.mu.Unlock()
	lv.changed()
}

func (lv *ListView) remove(ids []int64) {
	set := idSet(ids)
	lv.mu.Lock()
	kept := lv.files[:0]
	for _, f := range lv.files {
		if _, ok := set[f.ID]; ok {
			delete(lv.selected, f.ID)
			continue
		}
		kept = append(kept, f)
	}
	lv.files = kept
	lv.mu.Unlock()
	lv.changed()
}

// setImportant flags ids and drops rows the filter no longer shows.
func (lv *ListView) setImportant(ids []int64, important bool) (revert func()) {
	set := idSet(ids)
	lv.mu.Lock()
	prevFiles := append([]client.FileRecord(nil), lv.files...)
	prevSelected := make(map[int64]struct{}, len(lv.selected))
	for id := range lv.selected {
		prevSelected[id] = struct{}{}
	}
	kept := make([]client.FileRecord, 0, len(lv.files))
	for _, f := range lv.files {
		if _, ok := set[f.ID]; ok {
			f.IsImportant = important
		}
		if matches(lv.filter, f) {
			kept = append(kept, f)
		} else {
			delete(lv.selected, f.ID)
		}
	}
	lv.files = kept
	lv.mu.Unlock()
	lv.changed()

	return func() {
		lv.mu.Lock()
		current := make(map[int64]client.FileRecord, len(lv.files))
		for _, f := range lv.files {
			current[f.ID] = f
		}
		// Rows hidden by the patch come back in their original order.
		restored := make([]client.FileRecord, 0, len(prevFiles))
		for _, prev := range prevFiles {
			f, ok := current[prev.ID]
			if !ok {
				f = prev
				if _, sel := prevSelected[prev.ID]; sel {
					lv.selected[prev.ID] = struct{}{}
				}
			}
			f.IsImportant = prev.IsImportant
			restored = append(restored, f)
		}
		lv.files = restored
		lv.mu.Unlock()
		lv.changed()
	}
}

func (lv *ListView) markProcessed(id int64) {
	lv.mu.Lock()
	if i := lv.indexLocked(id); i >= 0 {
		lv.files[i].Processed = true
	}
	lv.mu.Unlock()
}

func (lv *ListView) onFinish(fileID int64, entry processing.LogEntry) {
	if entry.Step != events.StepDone {
		lv.changed()
		return
	}
	lv.markProcessed(fileID)
	lv.changed()
}

func (lv *ListView) describe(ids []int64) string {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if len(ids) == 1 {
		if i := lv.indexLocked(ids[0]); i >= 0 {
			return lv.files[i].FileName
		}
	}
	return fmt.Sprintf("%d files", len(ids))
}

func (lv *ListView) indexLocked(id int64) int {
	for i, f := range lv.files {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (lv *ListView) selectedLocked() []int64 {
	out := make([]int64, 0, len(lv.selected))
	for id := range lv.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (lv *ListView) changed() {
	lv.mu.Lock()
	fn := lv.onChange
	lv.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// matches reports whether f belongs in a list fetched with filter.
func matches(filter client.Filter, f client.FileRecord) bool {
	if filter.ImportantOnly && !f.IsImportant {
		return false
	}
	if filter.Status == "" {
		return f.Status == client.StatusActive || f.Status == client.StatusArchived
	}
	return f.Status == filter.Status
}

func idSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
