package store

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
)

// Stats holds ledger statistics.
type Stats struct {
	DBPath      string         `json:"db_path" yaml:"db_path"`
	DBSizeBytes int64          `json:"db_size_bytes" yaml:"db_size_bytes"`
	TotalRuns   int            `json:"total_runs" yaml:"total_runs"`
	ActiveRuns  int            `json:"active_runs" yaml:"active_runs"`
	TotalValues int            `json:"total_values" yaml:"total_values"`
	Species     []SpeciesStats `json:"species" yaml:"species"`
}

// SpeciesStats holds per-species counts over live runs.
type SpeciesStats struct {
	Species string `json:"species" yaml:"species"`
	Runs    int    `json:"runs" yaml:"runs"`
	Records int    `json:"records" yaml:"records"`
	Dropped int    `json:"dropped" yaml:"dropped"`
}

// Stats returns ledger statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM runs`, &st.TotalRuns},
		{`SELECT COUNT(*) FROM runs WHERE deleted_at IS NULL`, &st.ActiveRuns},
		{`SELECT COUNT(*) FROM run_values`, &st.TotalValues},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, errors.Wrap(err, "count")
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT species, COUNT(*) AS cnt, SUM(records_written), SUM(dropped)
		FROM runs WHERE deleted_at IS NULL
		GROUP BY species ORDER BY cnt DESC, species`)
	if err != nil {
		return nil, errors.Wrap(err, "species stats")
	}
	defer rows.Close()

	for rows.Next() {
		var sp SpeciesStats
		if err := rows.Scan(&sp.Species, &sp.Runs, &sp.Records, &sp.Dropped); err != nil {
			return nil, errors.Wrap(err, "scan species stats")
		}
		st.Species = append(st.Species, sp)
	}

	return st, rows.Err()
}
