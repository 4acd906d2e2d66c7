package store

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &SQLiteStore{db: db, entropy: rand.New(rand.NewSource(1))}, mock
}

func TestSaveRun_RollsBackOnValueError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("INSERT INTO run_values").
		ExpectExec().
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := s.SaveRun(context.Background(), sampleRun("co", time.Now()))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "insert value seq 0 gamma_He") {
		t.Errorf("expected failing value in error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveRun_CommitsRunThenValues(t *testing.T) {
	s, mock := newMockStore(t)
	p := sampleRun("co", time.Now())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(sqlmock.AnyArg(), "co", "in.par", "out.par", `["gamma_He","n_He"]`,
			3, 2, 1, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT INTO run_values")
	for range p.Values {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	run, err := s.SaveRun(context.Background(), p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if run.ValueCount != len(p.Values) {
		t.Errorf("expected %d values, got %d", len(p.Values), run.ValueCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestImport_ExistenceCheckError(t *testing.T) {
	s, mock := newMockStore(t)
	p := sampleRun("co", time.Now())
	p.Run.ID = "01JABCDEF"

	mock.ExpectQuery("FROM runs WHERE id").
		WithArgs("01JABCDEF").
		WillReturnError(errors.New("database is locked"))

	n, err := s.Import(context.Background(), []RunExport{{Run: p.Run, Values: p.Values}})
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 {
		t.Errorf("expected 0 imported, got %d", n)
	}
	if !strings.Contains(err.Error(), "check run 01JABCDEF") {
		t.Errorf("expected existence check in error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStats_ScanError(t *testing.T) {
	s, mock := newMockStore(t)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	}
	mock.ExpectQuery("GROUP BY species").
		WillReturnRows(sqlmock.NewRows([]string{"species", "cnt", "records", "dropped"}).
			AddRow("co", "many", 2, 1))

	st, err := s.Stats(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if st != nil {
		t.Errorf("expected no stats, got %+v", st)
	}
	if !strings.Contains(err.Error(), "scan species stats") {
		t.Errorf("expected scan failure in error, got %v", err)
	}
}

func TestStats_CountError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("no such table: runs"))

	if _, err := s.Stats(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "count") {
		t.Errorf("expected count error, got %v", err)
	}
}
