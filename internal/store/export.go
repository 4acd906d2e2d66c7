package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/rcliao/linebroad/internal/model"
)

// RunExport is a run together with every value it recorded.
type RunExport struct {
	Run    model.Run     `json:"run" yaml:"run"`
	Values []model.Value `json:"values" yaml:"values"`
}

// Export returns a live run and all of its values.
func (s *SQLiteStore) Export(ctx context.Context, id string) (*RunExport, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	values, err := s.Values(ctx, ValuesParams{RunID: run.ID})
	if err != nil {
		return nil, err
	}
	return &RunExport{Run: *run, Values: values}, nil
}

// Import stores exported runs under their original ids. Runs whose id is
// already present are skipped. Returns the number imported.
func (s *SQLiteStore) Import(ctx context.Context, exports []RunExport) (int, error) {
	imported := 0
	for _, e := range exports {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, e.Run.ID).Scan(&exists); err != nil {
			return imported, errors.Wrapf(err, "check run %s", e.Run.ID)
		}
		if exists > 0 {
			continue
		}
		if _, err := s.SaveRun(ctx, SaveParams{Run: e.Run, Values: e.Values}); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
