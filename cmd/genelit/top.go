// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/genelit/internal/pipeline"
	"github.com/pdiddy/genelit/pkg/types"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the most frequent genes and articles for a term",
	Long: `Top runs the search and counting stages without drawing charts or
calling an enrichment service. It prints the top genes by article count
and the top articles by gene count, highest first.`,
	RunE: runTop,
}

func init() {
	topCmd.Flags().Bool("json", false, "output the tables as JSON")
	rootCmd.AddCommand(topCmd)
}

type topOutput struct {
	Term       string        `json:"term"`
	Fetched    int           `json:"fetched"`
	TopSymbols []types.Count `json:"top_symbols"`
	TopRecords []types.Count `json:"top_records"`
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Term == "" {
		return fmt.Errorf("provide a search term with --term")
	}
	f, err := newFetcher(cfg.Fetch, os.Stderr)
	if err != nil {
		return err
	}

	a, err := pipeline.Analyze(cmd.Context(), cfg, f, os.Stderr)
	if err != nil {
		return err
	}

	// TopN returns ascending order for plotting; tables read top down.
	symbols := slices.Clone(a.TopSymbols)
	slices.Reverse(symbols)
	records := slices.Clone(a.TopRecords)
	slices.Reverse(records)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(topOutput{
			Term:       cfg.Term,
			Fetched:    len(a.Search.IDs),
			TopSymbols: symbols,
			TopRecords: records,
		})
	}

	formatCounts(os.Stdout, "Gene", "Articles", symbols)
	fmt.Fprintln(os.Stdout)
	formatCounts(os.Stdout, "PMID", "Genes", records)
	return nil
}

func formatCounts(w io.Writer, keyHeader, valueHeader string, counts []types.Count) {
	if len(counts) == 0 {
		fmt.Fprintf(w, "No %s counts.\n", strings.ToLower(keyHeader))
		return
	}
	fmt.Fprintf(w, "%-4s  %-20s  %s\n", "Rank", keyHeader, valueHeader)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for i, c := range counts {
		key := c.Key
		if len(key) > 20 {
			key = key[:17] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-20s  %d\n", i+1, key, c.Value)
	}
}
