package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const fileColumns = `id, well_id, storage_key, file_name, uploaded_at, status, is_important, processed`

// Create inserts a new file row.
func (r *PGRepo) Create(ctx context.Context, f File) (File, error) {
	const query = `
INSERT INTO files (well_id, storage_key, file_name, uploaded_at, status, is_important, processed)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	if f.Status == "" {
		f.Status = StatusActive
	}
	err := r.DB.QueryRowContext(
		ctx,
		query,
		f.WellID,
		f.StorageKey,
		f.FileName,
		f.UploadedAt,
		string(f.Status),
		f.IsImportant,
		f.Processed,
	).Scan(&f.ID)
	if err != nil {
		return File{}, err
	}
	return f, nil
}

// Get fetches a file by ID.
func (r *PGRepo) Get(ctx context.Context, id int64) (File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	f, err := scanFile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

// List returns matching files newest first.
func (r *PGRepo) List(ctx context.Context, filter Filter) ([]File, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	} else {
		where = append(where, "status IN ('active', 'archived')")
	}
	if filter.ImportantOnly {
		where = append(where, "is_important = TRUE")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	query := `SELECT ` + fileColumns + ` FROM files WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY uploaded_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update applies a patch and returns the updated row.
func (r *PGRepo) Update(ctx context.Context, id int64, patch Patch) (File, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}
	set, args := patchClauses(patch)
	args = append(args, id)
	query := `UPDATE files SET ` + strings.Join(set, ", ") +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + fileColumns
	f, err := scanFile(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

// BulkUpdate applies a patch to every listed file and returns the count updated.
func (r *PGRepo) BulkUpdate(ctx context.Context, ids []int64, patch Patch) (int, error) {
	if len(ids) == 0 || patch.Empty() {
		return 0, nil
	}
	set, args := patchClauses(patch)
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := `UPDATE files SET ` + strings.Join(set, ", ") + ` WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Delete removes a file row.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByWell counts files attached to a well in any status.
func (r *PGRepo) CountByWell(ctx context.Context, wellID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE well_id = $1`, wellID).Scan(&n)
	return n, err
}

// NamesWithPrefix lists display names that start with prefix.
func (r *PGRepo) NamesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT file_name FROM files WHERE file_name LIKE $1 ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (File, error) {
	var (
		f      File
		status string
	)
	if err := row.Scan(
		&f.ID,
		&f.WellID,
		&f.StorageKey,
		&f.FileName,
		&f.UploadedAt,
		&status,
		&f.IsImportant,
		&f.Processed,
	); err != nil {
		return File{}, err
	}
	f.Status = Status(status)
	return f, nil
}

func patchClauses(patch Patch) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.IsImportant != nil {
		args = append(args, *patch.IsImportant)
		set = append(set, fmt.Sprintf("is_important = $%d", len(args)))
	}
	if patch.WellID != nil {
		args = append(args, *patch.WellID)
		set = append(set, fmt.Sprintf("well_id = $%d", len(args)))
	}
	if patch.Processed != nil {
		args = append(args, *patch.Processed)
		set = append(set, fmt.Sprintf("processed = $%d", len(args)))
	}
	return set, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ Repo = (*PGRepo)(nil)
