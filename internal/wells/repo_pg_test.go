package wells

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetByNameMapsNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, name, created_at FROM wells WHERE name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByName(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateReturnsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO wells").
		WithArgs("A-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(int64(7), "A-1", now))

	repo := &PGRepo{DB: db}
	w, err := repo.Create(context.Background(), "A-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.ID != 7 || w.Name != "A-1" || !w.CreatedAt.Equal(now) {
		t.Fatalf("unexpected well %+v", w)
	}
}

func TestPGCurvesBulkInsertBatchesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	v := 1.5
	points := []CurvePoint{
		{WellID: 3, Depth: 10, CurveName: "GR", Value: &v},
		{WellID: 3, Depth: 11, CurveName: "GR"},
		{WellID: 3, Depth: 12, CurveName: "GR", Value: &v},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO curves").
		WithArgs(int64(3), 10.0, "GR", sqlmock.AnyArg(), int64(3), 11.0, "GR", nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO curves").
		WithArgs(int64(3), 12.0, "GR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := &PGCurves{DB: db, BatchSize: 2}
	var progress []int
	err = repo.BulkInsert(context.Background(), points, func(inserted, total int) {
		progress = append(progress, inserted)
	})
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}
	if len(progress) != 2 || progress[0] != 2 || progress[1] != 3 {
		t.Fatalf("unexpected progress %v", progress)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCurvesBulkInsertRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO curves").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := &PGCurves{DB: db}
	err = repo.BulkInsert(context.Background(), []CurvePoint{{WellID: 1, Depth: 1, CurveName: "GR"}}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCurvesDepthRangeWithoutRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT MIN\\(depth\\), MAX\\(depth\\) FROM curves").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	repo := &PGCurves{DB: db}
	if _, err := repo.DepthRange(context.Background(), 4); !errors.Is(err, ErrNoCurves) {
		t.Fatalf("expected ErrNoCurves, got %v", err)
	}
}
