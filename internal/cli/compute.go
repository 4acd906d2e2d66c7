package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/rcliao/linebroad/internal/logging"
	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/pipeline"
	"github.com/rcliao/linebroad/internal/species"
	"github.com/rcliao/linebroad/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Append computed parameters to a .par file",
		Long: "Reads a HITRAN 160-character .par file, computes the species' broadening, " +
			"temperature-dependence and shift parameters for every line, and writes the payload " +
			"followed by the new fields. Missing paths are prompted for on a terminal.",
		Run: runCompute,
	}

	cmd.Flags().StringP("species", "s", "", "Species id (see: linebroad species list)")
	cmd.Flags().StringP("in", "i", "", "Input .par file")
	cmd.Flags().StringP("out", "o", "", "Output file")
	cmd.Flags().IntP("workers", "w", 1, "Parallel evaluation workers")
	cmd.Flags().String("on-unknown-branch", "fail", "Records with an unrecognized branch: fail or skip")
	cmd.Flags().String("models", "", "Species catalog TOML replacing the built-in one")
	cmd.Flags().Bool("no-record", false, "Do not record the run in the ledger")

	RootCmd.AddCommand(cmd)
}

type computeOptions struct {
	Species string
	InPath  string
	OutPath string
	Workers int
	Policy  pipeline.Policy
	Catalog *model.Catalog
	Store   store.Store // nil disables recording
}

type computeOutput struct {
	RunID          string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Species        string   `json:"species" yaml:"species"`
	Input          string   `json:"input" yaml:"input"`
	Output         string   `json:"output" yaml:"output"`
	Columns        []string `json:"columns" yaml:"columns"`
	RecordsRead    int      `json:"records_read" yaml:"records_read"`
	RecordsWritten int      `json:"records_written" yaml:"records_written"`
	Dropped        int      `json:"dropped" yaml:"dropped"`
	Summary        string   `json:"summary" yaml:"summary"`
}

func runCompute(cmd *cobra.Command, args []string) {
	sp, _ := cmd.Flags().GetString("species")
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")

	cat, err := loadCatalog()
	if err != nil {
		exitErr("load catalog", err)
	}

	policy, err := pipeline.ParsePolicy(settings.OnUnknownBranch)
	if err != nil {
		exitErr("compute", err)
	}

	opts := computeOptions{
		Species: sp,
		InPath:  in,
		OutPath: out,
		Workers: settings.Workers,
		Policy:  policy,
		Catalog: cat,
	}

	stat, _ := os.Stdin.Stat()
	interactive := stat != nil && (stat.Mode()&os.ModeCharDevice) != 0
	if err := resolvePaths(&opts, os.Stdin, os.Stderr, interactive); err != nil {
		exitErr("compute", err)
	}

	var open func() (store.Store, error)
	if settings.Record {
		open = func() (store.Store, error) { return openStore() }
	}

	res, err := computeRecorded(cmd.Context(), opts, open)
	if err != nil {
		exitErr("compute", err)
	}

	printOut(cmd.OutOrStdout(), res, func(w io.Writer) {
		fmt.Fprintf(w, "end for calculation: %s\n", res.Summary)
		fmt.Fprintf(w, "records: %d read, %d written, %d dropped\n", res.RecordsRead, res.RecordsWritten, res.Dropped)
		if res.RunID != "" {
			fmt.Fprintf(w, "run: %s\n", res.RunID)
		}
	})
}

// resolvePaths fills in missing species and paths by prompting, and fails
// when it cannot prompt.
func resolvePaths(opts *computeOptions, r io.Reader, w io.Writer, interactive bool) error {
	var missing []string
	if opts.Species == "" {
		missing = append(missing, "--species")
	}
	if opts.InPath == "" {
		missing = append(missing, "--in")
	}
	if opts.OutPath == "" {
		missing = append(missing, "--out")
	}
	if len(missing) == 0 {
		return nil
	}
	if !interactive {
		return errors.WithHint(
			errors.Newf("missing %s", strings.Join(missing, ", ")),
			"pass the flags, or run from a terminal to be prompted")
	}

	br := bufio.NewReader(r)
	ask := func(label string) (string, error) {
		fmt.Fprint(w, label)
		line, err := br.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err == nil {
				err = errors.New("empty answer")
			}
			return "", errors.Wrapf(err, "read %s", strings.TrimSuffix(label, ":"))
		}
		return line, nil
	}

	var err error
	if opts.Species == "" {
		if opts.Species, err = ask(fmt.Sprintf("species (%s):", strings.Join(species.IDs(opts.Catalog), ", "))); err != nil {
			return err
		}
	}
	sp, err := species.Lookup(opts.Catalog, opts.Species)
	if err != nil {
		return err
	}
	if opts.InPath == "" {
		if opts.InPath, err = ask("input HITRAN 160 .par file to do the calculation for " + sp.Title + ":"); err != nil {
			return err
		}
	}
	if opts.OutPath == "" {
		if opts.OutPath, err = ask("output file name:"); err != nil {
			return err
		}
	}
	return nil
}

// computeRecorded runs compute against the ledger returned by open, closing
// it before returning on every path. A nil open disables recording.
func computeRecorded(ctx context.Context, opts computeOptions, open func() (store.Store, error)) (out *computeOutput, err error) {
	if open != nil {
		s, oerr := open()
		if oerr != nil {
			return nil, errors.Wrap(oerr, "open store")
		}
		defer func() {
			if cerr := s.Close(); cerr != nil && err == nil {
				out, err = nil, errors.Wrap(cerr, "close store")
			}
		}()
		opts.Store = s
	}
	return compute(ctx, opts)
}

func compute(ctx context.Context, opts computeOptions) (*computeOutput, error) {
	log := logging.Named("compute")

	sp, err := species.Lookup(opts.Catalog, opts.Species)
	if err != nil {
		return nil, err
	}
	eng, err := species.New(sp)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := pipeline.RunFile(ctx, pipeline.Config{
		Engine:    eng,
		Workers:   opts.Workers,
		OnUnknown: opts.Policy,
		Logger:    logging.Named("pipeline"),
	}, opts.InPath, opts.OutPath)
	if err != nil {
		return nil, err
	}

	out := &computeOutput{
		Species:        sp.ID,
		Input:          opts.InPath,
		Output:         opts.OutPath,
		Columns:        res.Columns,
		RecordsRead:    res.RecordsRead,
		RecordsWritten: res.RecordsWritten,
		Dropped:        res.Dropped,
		Summary:        res.Summary(),
	}

	if opts.Store != nil {
		run, err := opts.Store.SaveRun(ctx, store.SaveParams{
			Run: model.Run{
				Species:        sp.ID,
				InputPath:      opts.InPath,
				OutputPath:     opts.OutPath,
				Columns:        res.Columns,
				RecordsRead:    res.RecordsRead,
				RecordsWritten: res.RecordsWritten,
				Dropped:        res.Dropped,
				Workers:        res.Workers,
				CatalogVersion: opts.Catalog.Version,
				StartedAt:      started,
				FinishedAt:     time.Now(),
			},
			Values: res.Values(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "record run")
		}
		out.RunID = run.ID
		log.Infow("run recorded", logging.FieldRunID, run.ID, logging.FieldSpecies, sp.ID)
	}

	return out, nil
}
