package store

import (
	"context"
	"strings"

	"github.com/rcliao/linebroad/internal/model"
)

// Values returns the values recorded for one run, in output order. The run
// must be live.
func (s *SQLiteStore) Values(ctx context.Context, p ValuesParams) ([]model.Value, error) {
	run, err := s.GetRun(ctx, p.RunID)
	if err != nil {
		return nil, err
	}

	where := []string{"run_id = ?"}
	args := []interface{}{run.ID}
	if p.Quantity != "" {
		where = append(where, "quantity = ?")
		args = append(args, p.Quantity)
	}
	if p.Line > 0 {
		where = append(where, "line = ?")
		args = append(args, p.Line)
	}

	query := `SELECT run_id, seq, line, quantity, text, number, uncertainty, reference
		FROM run_values WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq, rowid`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []model.Value
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanValue(row scanner) (model.Value, error) {
	var v model.Value
	err := row.Scan(&v.RunID, &v.Seq, &v.Line, &v.Quantity, &v.Text, &v.Number, &v.Uncertainty, &v.Reference)
	return v, err
}
