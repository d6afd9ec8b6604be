package wells

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]Well
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[int64]Well),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, name string) (Well, error) {
	if err := ctx.Err(); err != nil {
		return Well{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w := Well{ID: r.nextID, Name: name, CreatedAt: r.now()}
	r.data[w.ID] = w
	return w, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Well, error) {
	if err := ctx.Err(); err != nil {
		return Well{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.data[id]
	if !ok {
		return Well{}, ErrNotFound
	}
	return w, nil
}

// GetByName returns the oldest well with the given name.
func (r *MemoryRepo) GetByName(ctx context.Context, name string) (Well, error) {
	if err := ctx.Err(); err != nil {
		return Well{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Well
	for id := range r.data {
		w := r.data[id]
		if w.Name != name {
			continue
		}
		if found == nil || w.ID < found.ID {
			found = &w
		}
	}
	if found == nil {
		return Well{}, ErrNotFound
	}
	return *found, nil
}

// List returns wells newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Well, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Well, 0, len(r.data))
	for _, w := range r.data {
		out = append(out, w)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
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

// MemoryCurves is an in-memory implementation of CurveRepo.
type MemoryCurves struct {
	mu        sync.RWMutex
	byWell    map[int64][]CurvePoint
	BatchSize int
}

// NewMemoryCurves constructs a MemoryCurves.
func NewMemoryCurves() *MemoryCurves {
	return &MemoryCurves{byWell: make(map[int64][]CurvePoint), BatchSize: DefaultBatchSize}
}

func (r *MemoryCurves) BulkInsert(ctx context.Context, points []CurvePoint, progress ProgressFunc) error {
	total := len(points)
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > total {
			end = total
		}
		r.mu.Lock()
		for _, p := range points[start:end] {
			r.byWell[p.WellID] = append(r.byWell[p.WellID], p)
		}
		r.mu.Unlock()
		if progress != nil {
			progress(end, total)
		}
	}
	return nil
}

func (r *MemoryCurves) DeleteByWell(ctx context.Context, wellID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.byWell, wellID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryCurves) Names(ctx context.Context, wellID int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	names := []string{}
	for _, p := range r.byWell[wellID] {
		if _, ok := seen[p.CurveName]; ok {
			continue
		}
		seen[p.CurveName] = struct{}{}
		names = append(names, p.CurveName)
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryCurves) DepthRange(ctx context.Context, wellID int64) (DepthRange, error) {
	if err := ctx.Err(); err != nil {
		return DepthRange{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	points := r.byWell[wellID]
	if len(points) == 0 {
		return DepthRange{}, ErrNoCurves
	}
	out := DepthRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range points {
		out.Min = math.Min(out.Min, p.Depth)
		out.Max = math.Max(out.Max, p.Depth)
	}
	return out, nil
}

func (r *MemoryCurves) Window(ctx context.Context, wellID int64, names []string, minDepth, maxDepth float64) ([]CurvePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	r.mu.RLock()
	out := []CurvePoint{}
	for _, p := range r.byWell[wellID] {
		if _, ok := want[p.CurveName]; !ok || p.Depth < minDepth || p.Depth > maxDepth {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth == out[j].Depth {
			return out[i].CurveName < out[j].CurveName
		}
		return out[i].Depth < out[j].Depth
	})
	return out, nil
}

// Count returns the number of stored samples for a well.
func (r *MemoryCurves) Count(wellID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byWell[wellID])
}

var (
	_ Repo      = (*MemoryRepo)(nil)
	_ CurveRepo = (*MemoryCurves)(nil)
)
