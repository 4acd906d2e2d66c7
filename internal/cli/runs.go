package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the ledger of recorded compute runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		Run:   runRunsList,
	}
	list.Flags().StringP("species", "s", "", "Filter by species")
	list.Flags().IntP("limit", "l", 20, "Max results")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run, optionally with its values",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsShow,
	}
	show.Flags().Bool("values", false, "Include computed values")
	show.Flags().StringP("quantity", "q", "", "Only values of this quantity")
	show.Flags().Int("line", 0, "Only values of this input line")
	show.Flags().IntP("limit", "l", 0, "Max values (0 = all)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		Run:   runRunsRm,
	}
	rm.Flags().Bool("hard", false, "Permanent delete (irreversible)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show ledger statistics",
		Args:  cobra.NoArgs,
		Run:   runRunsStats,
	}

	export := &cobra.Command{
		Use:   "export <id>...",
		Short: "Export runs with their values as JSON",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRunsExport,
	}

	imp := &cobra.Command{
		Use:   "import",
		Short: "Import runs from JSON on stdin",
		Long:  "Import runs from JSON on stdin. Expects the format produced by export.",
		Args:  cobra.NoArgs,
		Run:   runRunsImport,
	}

	cmd.AddCommand(list, show, rm, stats, export, imp)
	RootCmd.AddCommand(cmd)
}

func runRunsList(cmd *cobra.Command, args []string) {
	sp, _ := cmd.Flags().GetString("species")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), store.ListParams{Species: sp, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	printOut(cmd.OutOrStdout(), runs, func(w io.Writer) {
		writeRuns(w, runs)
	})
}

func writeRuns(w io.Writer, runs []model.Run) {
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-14s %6d written %4d dropped  %s\n",
			r.ID, r.Species, r.RecordsWritten, r.Dropped, r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

type runDetail struct {
	model.Run `yaml:",inline"`
	Values    []model.Value `json:"value_rows,omitempty" yaml:"value_rows,omitempty"`
}

func runRunsShow(cmd *cobra.Command, args []string) {
	withValues, _ := cmd.Flags().GetBool("values")
	quantity, _ := cmd.Flags().GetString("quantity")
	line, _ := cmd.Flags().GetInt("line")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := s.GetRun(cmd.Context(), args[0])
	if err != nil {
		exitErr("show", err)
	}

	detail := runDetail{Run: *run}
	if withValues || quantity != "" || line > 0 {
		detail.Values, err = s.Values(cmd.Context(), store.ValuesParams{
			RunID:    run.ID,
			Quantity: quantity,
			Line:     line,
			Limit:    limit,
		})
		if err != nil {
			exitErr("values", err)
		}
	}

	printOut(cmd.OutOrStdout(), detail, func(w io.Writer) {
		writeRunDetail(w, detail)
	})
}

func writeRunDetail(w io.Writer, d runDetail) {
	fmt.Fprintf(w, "run:      %s\n", d.ID)
	fmt.Fprintf(w, "species:  %s (catalog %s)\n", d.Species, d.CatalogVersion)
	fmt.Fprintf(w, "input:    %s\n", d.InputPath)
	fmt.Fprintf(w, "output:   %s\n", d.OutputPath)
	fmt.Fprintf(w, "columns:  %v\n", d.Columns)
	fmt.Fprintf(w, "records:  %d read, %d written, %d dropped\n", d.RecordsRead, d.RecordsWritten, d.Dropped)
	fmt.Fprintf(w, "workers:  %d\n", d.Workers)
	fmt.Fprintf(w, "duration: %s\n", d.FinishedAt.Sub(d.StartedAt))
	for _, v := range d.Values {
		fmt.Fprintf(w, "%6d %-10s %s %3d %s\n", v.Line, v.Quantity, v.Text, v.Uncertainty, v.Reference)
	}
}

func runRunsRm(cmd *cobra.Command, args []string) {
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RmRun(cmd.Context(), store.RmParams{ID: args[0], Hard: hard}); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"hard":%t}`+"\n", args[0], hard)
}

func runRunsStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	printOut(cmd.OutOrStdout(), stats, func(w io.Writer) {
		fmt.Fprintf(w, "db:     %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Fprintf(w, "runs:   %d live of %d\n", stats.ActiveRuns, stats.TotalRuns)
		fmt.Fprintf(w, "values: %d\n", stats.TotalValues)
		for _, sp := range stats.Species {
			fmt.Fprintf(w, "  %-14s %4d runs %8d records %6d dropped\n", sp.Species, sp.Runs, sp.Records, sp.Dropped)
		}
	})
}

func runRunsExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exports := make([]store.RunExport, 0, len(args))
	for _, id := range args {
		e, err := s.Export(cmd.Context(), id)
		if err != nil {
			exitErr("export", err)
		}
		exports = append(exports, *e)
	}

	b, _ := json.MarshalIndent(exports, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func runRunsImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var exports []store.RunExport
	if err := json.Unmarshal(data, &exports); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), exports)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
