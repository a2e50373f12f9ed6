// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/genelit/internal/enrich"
	"github.com/pdiddy/genelit/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, count, enrich, and render the full report",
	Long: `Run executes the whole pipeline for --term: it loads the mapping and symbol
tables, fetches every matching PubMed identifier, counts gene mentions, draws
the top genes and top articles as bar charts, enriches the top genes, draws
the enrichment dot plot, and writes summary.yaml to the output directory.

A term with no matches is not an error: the charts are drawn empty and the
summary records a warning.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("enricher", "", "enrichment backend: gprofiler, local, or none (default gprofiler)")
	f.String("gmt", "", "GMT gene set file for the local enricher")
	f.String("ontology", "", "GO branch: BP, MF, CC, or ALL (default BP)")
	f.Int("enrich-top", 0, "number of top genes sent to enrichment (default 100)")
	f.Int("show", 0, "terms drawn in the dot plot (default 10)")
	f.String("out-dir", "", "output directory for charts and summary (default output)")
	f.String("image-format", "", "chart format: png, svg, or pdf (default png)")
	f.String("format", "", "summary format: yaml or json (default yaml)")
	f.String("db", "", "record the run in this SQLite report database")

	bindFlags(f, map[string]string{
		"enrichment.backend":       "enricher",
		"enrichment.gmt_path":      "gmt",
		"enrichment.ontology":      "ontology",
		"enrichment.show_category": "show",
		"report.enrich_top":        "enrich-top",
		"report.out_dir":           "out-dir",
		"report.image_format":      "image-format",
		"report.format":            "format",
		"report.db_path":           "db",
	})

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Term == "" {
		return fmt.Errorf("provide a search term with --term or term: in genelit.yaml")
	}

	fetcher, err := newFetcher(cfg.Fetch, os.Stdout)
	if err != nil {
		return err
	}
	enricher, err := enrich.New(cfg.Enrichment, &http.Client{Timeout: cfg.Enrichment.Timeout}, os.Stdout)
	if err != nil {
		return err
	}

	sum, err := pipeline.Run(cmd.Context(), cfg, fetcher, enricher, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\nrun %s: %d articles, %d genes, %d enriched terms\n",
		sum.RunID, sum.Fetched, sum.DistinctSymbols, len(sum.Enrichment))
	for _, w := range sum.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
