package files

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]File
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[int64]File)}
}

func (r *MemoryRepo) Create(ctx context.Context, f File) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	if f.Status == "" {
		f.Status = StatusActive
	}
	r.data[f.ID] = f
	return f, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.data[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

// List returns matching files newest first.
func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]File, 0, len(r.data))
	for _, f := range r.data {
		if filter.Status != "" {
			if f.Status != filter.Status {
				continue
			}
		} else if f.Status == StatusDeleted {
			continue
		}
		if filter.ImportantOnly && !f.IsImportant {
			continue
		}
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, patch Patch) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.data[id]
	if !ok {
		return File{}, ErrNotFound
	}
	patch.apply(&f)
	r.data[id] = f
	return f, nil
}

func (r *MemoryRepo) BulkUpdate(ctx context.Context, ids []int64, patch Patch) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, id := range ids {
		f, ok := r.data[id]
		if !ok {
			continue
		}
		patch.apply(&f)
		r.data[id] = f
		updated++
	}
	return updated, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) CountByWell(ctx context.Context, wellID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, f := range r.data {
		if f.WellID == wellID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) NamesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, f := range r.data {
		if strings.HasPrefix(f.FileName, prefix) {
			out = append(out, f.FileName)
		}
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
