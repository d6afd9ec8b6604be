package files

import "context"

// Repo defines persistence operations for files.
type Repo interface {
	Create(ctx context.Context, f File) (File, error)
	Get(ctx context.Context, id int64) (File, error)
	List(ctx context.Context, filter Filter) ([]File, error)
	Update(ctx context.Context, id int64, patch Patch) (File, error)
	BulkUpdate(ctx context.Context, ids []int64, patch Patch) (int, error)
	Delete(ctx context.Context, id int64) error
	CountByWell(ctx context.Context, wellID int64) (int, error)
	NamesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
