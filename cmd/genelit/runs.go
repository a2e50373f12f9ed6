// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/genelit/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs recorded in the report database",
	Long: `Runs lists the runs saved by "genelit run --db", newest first. With
--run it prints the top genes recorded for that run instead.

With --summary it reads a summary.yaml or summary.json written by
"genelit run" and prints it; no database is needed.`,
	RunE: runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.String("db", "", "report database (default report.db_path)")
	f.String("run", "", "show the top genes of this run id")
	f.String("summary", "", "print a run summary file instead of querying the database")
	f.Int("limit", 20, "number of genes shown with --run")
	f.Bool("json", false, "output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if path, _ := cmd.Flags().GetString("summary"); path != "" {
		sum, err := report.ReadSummary(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return enc.Encode(sum)
		}
		formatSummary(os.Stdout, sum)
		return nil
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("report.db_path")
	}
	if dbPath == "" {
		return fmt.Errorf("no report database: pass --db or set report.db_path")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("report database %s: %w", dbPath, err)
	}

	store, err := report.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		limit, _ := cmd.Flags().GetInt("limit")
		top, err := store.TopSymbols(cmd.Context(), runID, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return enc.Encode(top)
		}
		if len(top) == 0 {
			fmt.Printf("No gene counts recorded for run %s.\n", runID)
			return nil
		}
		fmt.Printf("%-4s  %-20s  %s\n", "Rank", "Gene", "Articles")
		fmt.Println(strings.Repeat("-", 40))
		for i, c := range top {
			fmt.Printf("%-4d  %-20s  %d\n", i+1, c.Symbol, c.Count)
		}
		return nil
	}

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-30s  %8s  %8s\n", "Run", "Created", "Term", "Articles", "Joined")
	fmt.Println(strings.Repeat("-", 110))
	for _, r := range runs {
		term := r.Term
		if len(term) > 30 {
			term = term[:27] + "..."
		}
		fmt.Printf("%-36s  %-20s  %-30s  %8d  %8d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), term, r.Fetched, r.Joined)
	}
	fmt.Printf("\n%d runs\n", len(runs))
	return nil
}

// formatSummary prints the headline numbers, top tables, enriched terms,
// and warnings of one run summary.
func formatSummary(w io.Writer, s *report.Summary) {
	fmt.Fprintf(w, "Run:      %s\n", s.RunID)
	fmt.Fprintf(w, "Created:  %s\n", s.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Term:     %s\n", s.Term)
	if s.QueryTranslation != "" {
		fmt.Fprintf(w, "Query:    %s\n", s.QueryTranslation)
	}
	fmt.Fprintf(w, "Articles: %d fetched (%d reported)\n", s.Fetched, s.ReportedTotal)
	fmt.Fprintf(w, "Genes:    %d distinct in %d articles\n\n", s.DistinctSymbols, s.DistinctRecords)

	symbols := slices.Clone(s.TopSymbols)
	slices.Reverse(symbols)
	formatCounts(w, "Gene", "Articles", symbols)
	fmt.Fprintln(w)

	if len(s.Enrichment) > 0 {
		fmt.Fprintf(w, "%-12s  %-40s  %10s  %5s\n", "Term", "Description", "p.adjust", "Count")
		fmt.Fprintln(w, strings.Repeat("-", 73))
		for _, t := range s.Enrichment {
			desc := t.Description
			if len(desc) > 40 {
				desc = desc[:37] + "..."
			}
			fmt.Fprintf(w, "%-12s  %-40s  %10.3g  %5d\n", t.ID, desc, t.AdjustedPValue, t.Count)
		}
		fmt.Fprintln(w)
	}

	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
