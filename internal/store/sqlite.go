package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/linebroad/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		species         TEXT NOT NULL,
		input_path      TEXT NOT NULL DEFAULT '',
		output_path     TEXT NOT NULL DEFAULT '',
		columns         TEXT NOT NULL,
		records_read    INTEGER NOT NULL DEFAULT 0,
		records_written INTEGER NOT NULL DEFAULT 0,
		dropped         INTEGER NOT NULL DEFAULT 0,
		workers         INTEGER NOT NULL DEFAULT 1,
		catalog_version TEXT,
		started_at      TEXT NOT NULL,
		finished_at     TEXT NOT NULL,
		deleted_at      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_species ON runs(species);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_deleted ON runs(deleted_at);

	CREATE TABLE IF NOT EXISTS run_values (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		line        INTEGER NOT NULL,
		quantity    TEXT NOT NULL,
		text        TEXT NOT NULL,
		number      REAL NOT NULL,
		uncertainty INTEGER NOT NULL,
		reference   TEXT NOT NULL,
		PRIMARY KEY (run_id, seq, quantity)
	);
	CREATE INDEX IF NOT EXISTS idx_values_quantity ON run_values(run_id, quantity);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339Nano

func (s *SQLiteStore) SaveRun(ctx context.Context, p SaveParams) (*model.Run, error) {
	run := p.Run
	run.Species = strings.ToLower(run.Species)
	if run.Species == "" {
		return nil, errors.New("run has no species")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	if run.ID == "" {
		run.ID = s.newID(run.StartedAt)
	}
	run.DeletedAt = nil

	cols, err := json.Marshal(run.Columns)
	if err != nil {
		return nil, errors.Wrap(err, "encode columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var catalogVersion *string
	if run.CatalogVersion != "" {
		catalogVersion = &run.CatalogVersion
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, species, input_path, output_path, columns, records_read, records_written,
		                   dropped, workers, catalog_version, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Species, run.InputPath, run.OutputPath, string(cols),
		run.RecordsRead, run.RecordsWritten, run.Dropped, run.Workers, catalogVersion,
		run.StartedAt.Format(timeLayout), run.FinishedAt.Format(timeLayout))
	if err != nil {
		return nil, errors.Wrap(err, "insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_values (run_id, seq, line, quantity, text, number, uncertainty, reference)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare values")
	}
	defer stmt.Close()

	for _, v := range p.Values {
		_, err = stmt.ExecContext(ctx, run.ID, v.Seq, v.Line, v.Quantity, v.Text, v.Number, v.Uncertainty, v.Reference)
		if err != nil {
			return nil, errors.Wrapf(err, "insert value seq %d %s", v.Seq, v.Quantity)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	run.ValueCount = len(p.Values)
	return &run, nil
}

const runColumns = `r.id, r.species, r.input_path, r.output_path, r.columns, r.records_read, r.records_written,
	r.dropped, r.workers, r.catalog_version, r.started_at, r.finished_at, r.deleted_at,
	(SELECT COUNT(*) FROM run_values v WHERE v.run_id = r.id)`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, errors.Wrap(ErrRunNotFound, "empty id")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r
		 WHERE r.id LIKE ? AND r.deleted_at IS NULL
		 ORDER BY r.id LIMIT 2`, id+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(runs) {
	case 0:
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	case 1:
		return &runs[0], nil
	}
	return nil, errors.WithHint(
		errors.Newf("run id prefix %s is ambiguous", id),
		"give more characters of the id (linebroad runs list)")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, p ListParams) ([]model.Run, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"r.deleted_at IS NULL"}
	var args []interface{}
	if p.Species != "" {
		where = append(where, "r.species = ?")
		args = append(args, strings.ToLower(p.Species))
	}

	query := `SELECT ` + runColumns + ` FROM runs r
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) RmRun(ctx context.Context, p RmParams) error {
	run, err := s.GetRun(ctx, p.ID)
	if err != nil {
		return err
	}

	if p.Hard {
		// run_values rows go with it via ON DELETE CASCADE
		_, err = s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID)
		return err
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `UPDATE runs SET deleted_at = ? WHERE id = ?`, now, run.ID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (model.Run, error) {
	var r model.Run
	var cols, startedAt, finishedAt string
	var catalogVersion, deletedAt sql.NullString

	err := row.Scan(
		&r.ID, &r.Species, &r.InputPath, &r.OutputPath, &cols,
		&r.RecordsRead, &r.RecordsWritten, &r.Dropped, &r.Workers,
		&catalogVersion, &startedAt, &finishedAt, &deletedAt, &r.ValueCount,
	)
	if err != nil {
		return r, err
	}

	json.Unmarshal([]byte(cols), &r.Columns)
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	r.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
	if catalogVersion.Valid {
		r.CatalogVersion = catalogVersion.String
	}
	if deletedAt.Valid {
		t, _ := time.Parse(timeLayout, deletedAt.String)
		r.DeletedAt = &t
	}
	return r, nil
}
