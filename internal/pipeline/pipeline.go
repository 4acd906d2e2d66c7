// Package pipeline runs a species engine over a whole line list: parse,
// derive, evaluate and write, preserving input order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/linebroad/internal/hitran"
	"github.com/rcliao/linebroad/internal/logging"
	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/quanta"
	"github.com/rcliao/linebroad/internal/species"
)

// Policy decides what happens to a record whose branch or transition is not
// recognized.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicySkip Policy = "skip"
)

// batchSize is the number of records one worker evaluates per task.
const batchSize = 512

// ParsePolicy validates a policy name. Empty means PolicyFail.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicySkip:
		return PolicySkip, nil
	}
	return "", errors.WithHint(
		errors.Newf("unknown policy %q", s),
		"use fail or skip")
}

// Config is everything a run needs besides its input and output.
type Config struct {
	Engine    *species.Engine
	Workers   int
	OnUnknown Policy
	Logger    *zap.SugaredLogger
}

// Line is one retained record with its evaluated quantities.
type Line struct {
	Record  hitran.LineRecord
	Results []species.Result
}

// Result summarizes a completed run.
type Result struct {
	Species        string
	Columns        []string
	RecordsRead    int
	RecordsWritten int
	Dropped        int
	Workers        int
	Lines          []Line
}

// Summary is the one-line description of the appended columns.
func (r *Result) Summary() string {
	return fmt.Sprintf("output %q", strings.Join(append([]string{"160.par"}, r.Columns...), " + "))
}

// Values flattens the evaluated quantities for the run ledger, one per
// retained record and quantity, in output order.
func (r *Result) Values() []model.Value {
	vals := make([]model.Value, 0, len(r.Lines)*len(r.Columns))
	for seq, l := range r.Lines {
		for _, q := range l.Results {
			vals = append(vals, model.Value{
				Seq:         seq,
				Line:        l.Record.Line,
				Quantity:    q.Quantity,
				Text:        q.Text,
				Number:      q.Value,
				Uncertainty: q.Uncertainty,
				Reference:   q.Reference,
			})
		}
	}
	return vals
}

type pending struct {
	rec hitran.LineRecord
	ix  species.Indices
}

// Run reads a line list from in, evaluates every retained record and writes
// the output rows to out. Nothing is written unless every record parses and
// the unknown-branch policy is satisfied.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) (*Result, error) {
	if cfg.Engine == nil {
		return nil, errors.New("pipeline: no engine")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Named("pipeline")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	eng := cfg.Engine
	id := eng.Species().ID

	recs, err := hitran.Parse(in, eng.Layout())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Species:     id,
		Columns:     eng.Columns(),
		RecordsRead: len(recs),
		Workers:     workers,
	}

	kept, err := retain(eng, recs, cfg.OnUnknown, log)
	if err != nil {
		return nil, err
	}
	res.Dropped = len(recs) - len(kept)

	results, err := evaluate(ctx, eng, kept, workers)
	if err != nil {
		return nil, err
	}

	w := hitran.NewWriter(out)
	res.Lines = make([]Line, len(kept))
	for i, p := range kept {
		res.Lines[i] = Line{Record: p.rec, Results: results[i]}
		if err := w.Write(eng.Row(p.rec, results[i])); err != nil {
			return nil, errors.Wrap(err, "write output")
		}
	}
	if err := w.Flush(); err != nil {
		return nil, errors.Wrap(err, "write output")
	}
	res.RecordsWritten = w.Rows()

	log.Infow("run complete",
		logging.FieldSpecies, id,
		logging.FieldCount, res.RecordsWritten,
		"dropped", res.Dropped,
		logging.FieldWorkers, workers)
	return res, nil
}

// retain derives indices for every record in one pass. Dropped records never
// reach the returned slice, so records and indices stay paired.
func retain(eng *species.Engine, recs []hitran.LineRecord, policy Policy, log *zap.SugaredLogger) ([]pending, error) {
	kept := make([]pending, 0, len(recs))
	for _, rec := range recs {
		ix, err := eng.Derive(rec)
		if err == nil {
			kept = append(kept, pending{rec: rec, ix: ix})
			continue
		}
		if !quanta.IsDropped(err) || policy != PolicySkip {
			return nil, errors.WithHint(
				errors.Wrapf(err, "line %d", rec.Line),
				"rerun with --on-unknown-branch=skip to drop such records")
		}
		log.Warnw("dropping record",
			logging.FieldLine, rec.Line,
			logging.FieldError, err.Error())
	}
	return kept, nil
}

// evaluate runs the models over contiguous batches. Each batch writes only
// its own slots of the result slice.
func evaluate(ctx context.Context, eng *species.Engine, kept []pending, workers int) ([][]species.Result, error) {
	results := make([][]species.Result, len(kept))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(kept); start += batchSize {
		if err := gctx.Err(); err != nil {
			break
		}
		lo, hi := start, start+batchSize
		if hi > len(kept) {
			hi = len(kept)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				results[i] = eng.Evaluate(kept[i].ix)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	return results, nil
}

// RunFile runs the pipeline between two paths. Output goes to a temporary
// file beside outPath and is renamed into place only when the run succeeds,
// so a failed run leaves any existing output untouched.
func RunFile(ctx context.Context, cfg Config, inPath, outPath string) (res *Result, err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	defer in.Close()

	inInfo, err := in.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat input")
	}
	if outInfo, serr := os.Stat(outPath); serr == nil && os.SameFile(inInfo, outInfo) {
		return nil, errors.WithHint(
			errors.Newf("output %s is the input file", outPath),
			"choose a different --out path",
		)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			res = nil
		}
	}()

	if res, err = Run(ctx, cfg, in, tmp); err != nil {
		return nil, err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return nil, errors.Wrap(err, "chmod output")
	}
	if err = tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "close output")
	}
	if err = os.Rename(tmp.Name(), outPath); err != nil {
		return nil, errors.Wrap(err, "rename output")
	}
	return res, nil
}
