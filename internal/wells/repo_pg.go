package wells

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DefaultBatchSize is the number of curve samples written per INSERT.
const DefaultBatchSize = 10000

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, name string) (Well, error) {
	const query = `
INSERT INTO wells (name, created_at)
VALUES ($1, now())
RETURNING id, name, created_at`
	var w Well
	if err := r.DB.QueryRowContext(ctx, query, name).Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
		return Well{}, err
	}
	return w, nil
}

func (r *PGRepo) Get(ctx context.Context, id int64) (Well, error) {
	const query = `SELECT id, name, created_at FROM wells WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *PGRepo) GetByName(ctx context.Context, name string) (Well, error) {
	const query = `SELECT id, name, created_at FROM wells WHERE name = $1 ORDER BY id ASC LIMIT 1`
	return r.scanOne(ctx, query, name)
}

func (r *PGRepo) List(ctx context.Context) ([]Well, error) {
	const query = `SELECT id, name, created_at FROM wells ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Well{}
	for rows.Next() {
		var w Well
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM wells WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) scanOne(ctx context.Context, query string, arg any) (Well, error) {
	var w Well
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&w.ID, &w.Name, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Well{}, ErrNotFound
		}
		return Well{}, err
	}
	return w, nil
}

// PGCurves implements CurveRepo using Postgres.
type PGCurves struct {
	DB        *sql.DB
	BatchSize int
}

// BulkInsert writes samples in batches inside one transaction and reports
// progress after every batch.
func (r *PGCurves) BulkInsert(ctx context.Context, points []CurvePoint, progress ProgressFunc) error {
	total := len(points)
	if total == 0 {
		return nil
	}
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		query, args := buildCurveInsert(points[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert curves batch at %d: %w", start, err)
		}
		if progress != nil {
			progress(end, total)
		}
	}
	return tx.Commit()
}

func buildCurveInsert(batch []CurvePoint) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO curves (well_id, depth, curve_name, value) VALUES ")
	args := make([]any, 0, len(batch)*4)
	for i, p := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		var value sql.NullFloat64
		if p.Value != nil {
			value = sql.NullFloat64{Float64: *p.Value, Valid: true}
		}
		args = append(args, p.WellID, p.Depth, p.CurveName, value)
	}
	return b.String(), args
}

func (r *PGCurves) DeleteByWell(ctx context.Context, wellID int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM curves WHERE well_id = $1`, wellID)
	return err
}

func (r *PGCurves) Names(ctx context.Context, wellID int64) ([]string, error) {
	const query = `SELECT DISTINCT curve_name FROM curves WHERE well_id = $1 ORDER BY curve_name`
	rows, err := r.DB.QueryContext(ctx, query, wellID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PGCurves) DepthRange(ctx context.Context, wellID int64) (DepthRange, error) {
	const query = `SELECT MIN(depth), MAX(depth) FROM curves WHERE well_id = $1`
	var minD, maxD sql.NullFloat64
	if err := r.DB.QueryRowContext(ctx, query, wellID).Scan(&minD, &maxD); err != nil {
		return DepthRange{}, err
	}
	if !minD.Valid || !maxD.Valid {
		return DepthRange{}, ErrNoCurves
	}
	return DepthRange{Min: minD.Float64, Max: maxD.Float64}, nil
}

func (r *PGCurves) Window(ctx context.Context, wellID int64, names []string, minDepth, maxDepth float64) ([]CurvePoint, error) {
	if len(names) == 0 {
		return []CurvePoint{}, nil
	}
	args := []any{wellID, minDepth, maxDepth}
	marks := make([]string, len(names))
	for i, n := range names {
		args = append(args, n)
		marks[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT depth, curve_name, value FROM curves
		WHERE well_id = $1 AND depth BETWEEN $2 AND $3 AND curve_name IN (` + strings.Join(marks, ", ") + `)
		ORDER BY depth, curve_name`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CurvePoint{}
	for rows.Next() {
		p := CurvePoint{WellID: wellID}
		var value sql.NullFloat64
		if err := rows.Scan(&p.Depth, &p.CurveName, &value); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var (
	_ Repo      = (*PGRepo)(nil)
	_ CurveRepo = (*PGCurves)(nil)
)
