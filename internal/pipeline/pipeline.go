// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one genelit analysis end to end: load the
// reference tables, search for matching records, join and count, render
// the frequency charts, enrich the top genes, and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/genelit/internal/aggregate"
	"github.com/pdiddy/genelit/internal/enrich"
	"github.com/pdiddy/genelit/internal/fetch"
	"github.com/pdiddy/genelit/internal/mapping"
	"github.com/pdiddy/genelit/internal/render"
	"github.com/pdiddy/genelit/internal/report"
	"github.com/pdiddy/genelit/pkg/types"
)

// Defaults for ReportConfig fields left at zero.
const (
	DefaultTopN        = 9
	DefaultEnrichTop   = 100
	DefaultOutDir      = "output"
	DefaultImageFormat = "png"
)

// Artifact base names inside the output directory.
const (
	TopGenesChart   = "top_genes"
	TopRecordsChart = "top_records"
	EnrichmentChart = "enrichment"
)

// Analysis is the in-memory result of the load, fetch, join, and count
// stages.
type Analysis struct {
	Search     fetch.Result
	Join       aggregate.JoinStats
	Symbols    []types.SymbolCount
	Records    []types.RecordCount
	TopSymbols []types.Count
	TopRecords []types.Count

	// Empty is set when the search matched nothing.
	Empty bool
}

// Analyze loads the reference tables, fetches the identifiers for
// cfg.Term, and counts symbols and records over the matched rows. A
// search with no matches is not an error: the Analysis is empty and
// Empty is set.
func Analyze(ctx context.Context, cfg types.PipelineConfig, f fetch.Fetcher, w io.Writer) (*Analysis, error) {
	cfg.Report = withReportDefaults(cfg.Report)
	if w == nil {
		w = io.Discard
	}
	if strings.TrimSpace(cfg.Term) == "" {
		return nil, fetch.ErrEmptyTerm
	}

	rows, err := mapping.LoadMapping(cfg.Mapping)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "loaded: %d mapping rows for organism %s from %s\n",
		len(rows), organism(cfg.Mapping), cfg.Mapping.Path)

	xref, err := mapping.LoadCrossRef(cfg.CrossRef)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "loaded: %d cross-reference rows from %s\n", len(xref), cfg.CrossRef.Path)

	joined, stats := aggregate.JoinWithStats(rows, xref)
	fmt.Fprintf(w, "joined: %d record-symbol pairs (%d unmapped, %d duplicate rows dropped)\n",
		stats.Joined, stats.Unmapped, stats.Duplicates)
	if err := aggregate.CheckIntegrity(stats, cfg.Report.MaxUnmapped); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "searching: %q via %s\n", cfg.Term, f.Name())
	res, err := f.Fetch(ctx, cfg.Term)
	empty := errors.Is(err, fetch.ErrEmptyResult)
	switch {
	case empty:
		fmt.Fprintf(w, "warning: %q matched no records; continuing with empty results\n", cfg.Term)
	case err != nil:
		return nil, fmt.Errorf("fetching identifiers: %w", err)
	}
	fmt.Fprintf(w, "fetched: %d identifiers (reported %d)\n", len(res.IDs), res.Total)
	if res.Truncated {
		fmt.Fprintf(w, "warning: retrieved %d of %d records\n", len(res.IDs), res.Total)
	}

	symbols, records := aggregate.FilterAndCount(joined, res.IDs)
	fmt.Fprintf(w, "counted: %d symbols across %d records\n", len(symbols), len(records))

	return &Analysis{
		Search:     res,
		Join:       stats,
		Symbols:    symbols,
		Records:    records,
		TopSymbols: aggregate.TopN(types.SymbolCounts(symbols), cfg.Report.TopN),
		TopRecords: aggregate.TopN(types.RecordCounts(records), cfg.Report.TopN),
		Empty:      empty,
	}, nil
}

// Run executes the full pipeline and returns the run summary. Charts and
// the summary file are written to cfg.Report.OutDir; when
// cfg.Report.DBPath is set the run is also saved to the report database.
// Output formats are checked before any work starts. An enrichment
// failure aborts the run after the frequency charts have been written.
func Run(ctx context.Context, cfg types.PipelineConfig, f fetch.Fetcher, e enrich.Enricher, w io.Writer) (*report.Summary, error) {
	cfg.Report = withReportDefaults(cfg.Report)
	if w == nil {
		w = io.Discard
	}
	if err := report.CheckFormat(cfg.Report.Format); err != nil {
		return nil, err
	}
	if err := render.CheckFormat(cfg.Report.ImageFormat); err != nil {
		return nil, err
	}
	if cfg.Enrichment.Organism == "" {
		// Enrich against the organism the mapping was filtered to.
		cfg.Enrichment.Organism = organism(cfg.Mapping)
	}

	a, err := Analyze(ctx, cfg, f, w)
	if err != nil {
		return nil, err
	}

	sum := report.NewSummary(cfg.Term)
	sum.QueryTranslation = a.Search.QueryTranslation
	sum.Organism = organism(cfg.Mapping)
	sum.FetchBackend = f.Name()
	sum.EnrichBackend = e.Name()
	sum.ReportedTotal = a.Search.Total
	sum.Fetched = len(a.Search.IDs)
	sum.Join = a.Join
	sum.DistinctSymbols = len(a.Symbols)
	sum.DistinctRecords = len(a.Records)
	sum.TopSymbols = a.TopSymbols
	sum.TopRecords = a.TopRecords
	if a.Empty {
		sum.Warn("search term %q matched no records", cfg.Term)
	}
	if a.Search.Truncated {
		sum.Warn("retrieved %d of %d records: PubMed esearch returns at most %d identifiers",
			len(a.Search.IDs), a.Search.Total, fetch.PubMedRetrievalCap)
	}

	out := cfg.Report.OutDir
	ext := "." + strings.TrimPrefix(strings.ToLower(cfg.Report.ImageFormat), ".")

	genes := TopGenesChart + ext
	if err := render.BarChart(filepath.Join(out, genes),
		fmt.Sprintf("Top %d genes: %s", cfg.Report.TopN, cfg.Term), "articles", a.TopSymbols); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "wrote: %s\n", filepath.Join(out, genes))

	recs := TopRecordsChart + ext
	if err := render.BarChart(filepath.Join(out, recs),
		fmt.Sprintf("Top %d records: %s", cfg.Report.TopN, cfg.Term), "genes mentioned", a.TopRecords); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "wrote: %s\n", filepath.Join(out, recs))
	sum.Artifacts = append(sum.Artifacts, genes, recs)

	keys := aggregate.TopKeys(types.SymbolCounts(a.Symbols), cfg.Report.EnrichTop)
	var terms []types.EnrichedTerm
	if len(keys) == 0 {
		sum.Warn("no symbols to enrich")
	} else {
		fmt.Fprintf(w, "enriching: top %d symbols via %s\n", len(keys), e.Name())
		terms, err = e.Enrich(ctx, enrich.NewRequest(cfg.Enrichment, keys))
		if err != nil {
			return nil, fmt.Errorf("enriching top symbols: %w", err)
		}
		fmt.Fprintf(w, "enriched: %d terms\n", len(terms))
	}
	sum.Enrichment = terms

	show := cfg.Enrichment.ShowCategory
	if show <= 0 {
		show = enrich.DefaultShowCategory
	}
	dots := EnrichmentChart + ext
	if err := render.DotPlot(filepath.Join(out, dots),
		fmt.Sprintf("Enrichment of top %d genes: %s", len(keys), cfg.Term), terms, show); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "wrote: %s\n", filepath.Join(out, dots))
	sum.Artifacts = append(sum.Artifacts, dots)

	if cfg.Report.DBPath != "" {
		if err := saveRun(ctx, cfg.Report.DBPath, sum, a); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "recorded: run %s in %s\n", sum.RunID, cfg.Report.DBPath)
	}

	path, err := report.WriteSummary(out, cfg.Report.Format, sum)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "wrote: %s\n", path)
	return sum, nil
}

func saveRun(ctx context.Context, dbPath string, sum *report.Summary, a *Analysis) error {
	store, err := report.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening report database: %w", err)
	}
	defer store.Close()
	if err := store.Save(ctx, sum, a.Symbols, a.Records); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func withReportDefaults(r types.ReportConfig) types.ReportConfig {
	if r.TopN <= 0 {
		r.TopN = DefaultTopN
	}
	if r.EnrichTop <= 0 {
		r.EnrichTop = DefaultEnrichTop
	}
	if r.OutDir == "" {
		r.OutDir = DefaultOutDir
	}
	if r.ImageFormat == "" {
		r.ImageFormat = DefaultImageFormat
	}
	if r.Format == "" {
		r.Format = types.SummaryYAML
	}
	return r
}

func organism(cfg types.MappingConfig) string {
	if cfg.Organism == "" {
		return mapping.DefaultOrganism
	}
	return cfg.Organism
}
