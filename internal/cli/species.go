package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/species"
)

func init() {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Inspect the species model catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List species and the columns they append",
		Args:  cobra.NoArgs,
		Run:   runSpeciesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one species' layout, indices and models",
		Args:  cobra.ExactArgs(1),
		Run:   runSpeciesShow,
	})

	RootCmd.AddCommand(cmd)
}

type speciesSummary struct {
	ID       string   `json:"id" yaml:"id"`
	Molecule string   `json:"molecule" yaml:"molecule"`
	Title    string   `json:"title" yaml:"title"`
	Columns  []string `json:"columns" yaml:"columns"`
}

func summarize(cat *model.Catalog) []speciesSummary {
	out := make([]speciesSummary, 0, len(cat.Species))
	for _, sp := range cat.Species {
		s := speciesSummary{ID: sp.ID, Molecule: sp.Molecule, Title: sp.Title}
		for _, lit := range sp.Prefix {
			s.Columns = append(s.Columns, lit.Name)
		}
		for _, q := range sp.Quantities {
			s.Columns = append(s.Columns, q.Name)
		}
		out = append(out, s)
	}
	return out
}

func runSpeciesList(cmd *cobra.Command, args []string) {
	cat, err := loadCatalog()
	if err != nil {
		exitErr("load catalog", err)
	}
	list := summarize(cat)
	printOut(cmd.OutOrStdout(), list, func(w io.Writer) {
		writeSpeciesList(w, list)
	})
}

func writeSpeciesList(w io.Writer, list []speciesSummary) {
	for _, s := range list {
		fmt.Fprintf(w, "%-14s %-5s %s\n", s.ID, s.Molecule, strings.Join(s.Columns, " + "))
	}
}

func runSpeciesShow(cmd *cobra.Command, args []string) {
	cat, err := loadCatalog()
	if err != nil {
		exitErr("load catalog", err)
	}
	sp, err := species.Lookup(cat, args[0])
	if err != nil {
		exitErr("species", err)
	}
	printOut(cmd.OutOrStdout(), sp, func(w io.Writer) {
		writeSpecies(w, sp)
	})
}

func writeSpecies(w io.Writer, sp model.Species) {
	fmt.Fprintf(w, "%s (%s): %s\n", sp.ID, sp.Molecule, sp.Title)

	fmt.Fprintln(w, "layout:")
	layout, _ := species.LayoutOf(sp)
	for _, name := range layout.Fields() {
		span := layout[name]
		fmt.Fprintf(w, "  %-9s [%d, %d)\n", name, span.Start, span.End)
	}

	fmt.Fprintln(w, "indices:")
	for _, ix := range sp.Indices {
		fmt.Fprintf(w, "  %-9s %s%s\n", ix.Name, ix.Kind, rules(" remap", ix.Remap))
	}

	for _, lit := range sp.Prefix {
		fmt.Fprintf(w, "column %s = %s\n", lit.Name, lit.Value)
	}
	for _, q := range sp.Quantities {
		fmt.Fprintf(w, "quantity %s (%s, %s) ref %s\n", q.Name, q.Parameter, q.Partner, q.Reference)
		if q.Form == model.FormConstant {
			fmt.Fprintf(w, "  constant %s\n", q.Value)
		} else {
			args := make([]string, len(q.Args))
			for i, a := range q.Args {
				args[i] = a.Index + rules(" clamp", a.Clamp)
			}
			fmt.Fprintf(w, "  %s(%s) %v", q.Form, strings.Join(args, "; "), q.Coefficients)
			if q.BandFactor != 0 {
				fmt.Fprintf(w, " band %g", q.BandFactor)
			}
			if q.Scale != "" {
				fmt.Fprintf(w, " x %s", q.Scale)
			}
			fmt.Fprintf(w, " as %s\n", q.Format)
		}
		u := q.Uncertainty
		fmt.Fprintf(w, "  uncertainty %d%s\n", u.Default, rules(" on "+u.Index, u.Rules))
	}
}

func rules(label string, rs []model.Rule) string {
	if len(rs) == 0 {
		return ""
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%s %g -> %g", r.Op, r.At, r.Set)
	}
	return label + ": " + strings.Join(parts, ", ")
}
