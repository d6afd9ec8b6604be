package wells

import "context"

// Repo defines persistence operations for wells.
type Repo interface {
	Create(ctx context.Context, name string) (Well, error)
	Get(ctx context.Context, id int64) (Well, error)
	GetByName(ctx context.Context, name string) (Well, error)
	List(ctx context.Context) ([]Well, error)
	Delete(ctx context.Context, id int64) error
}

// CurveRepo defines persistence operations for curve samples.
type CurveRepo interface {
	BulkInsert(ctx context.Context, points []CurvePoint, progress ProgressFunc) error
	DeleteByWell(ctx context.Context, wellID int64) error
	Names(ctx context.Context, wellID int64) ([]string, error)
	DepthRange(ctx context.Context, wellID int64) (DepthRange, error)
	// Window returns samples of the named curves with depth in
	// [minDepth, maxDepth], ordered by depth then curve name.
	Window(ctx context.Context, wellID int64, names []string, minDepth, maxDepth float64) ([]CurvePoint, error)
}
