// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report records the outcome of a pipeline run: a summary file
// (YAML or JSON) next to the charts, and optionally a row set in a SQLite
// report database that accumulates runs over time.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/genelit/internal/aggregate"
	"github.com/pdiddy/genelit/pkg/types"
)

// SummaryBase is the summary file name without extension.
const SummaryBase = "summary"

// Summary describes one run.
type Summary struct {
	RunID            string    `json:"run_id" yaml:"run_id"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	Term             string    `json:"term" yaml:"term"`
	QueryTranslation string    `json:"query_translation,omitempty" yaml:"query_translation,omitempty"`
	Organism         string    `json:"organism" yaml:"organism"`
	FetchBackend     string    `json:"fetch_backend" yaml:"fetch_backend"`
	EnrichBackend    string    `json:"enrich_backend" yaml:"enrich_backend"`

	// ReportedTotal is the match count from the first search call;
	// Fetched is the number of distinct identifiers retrieved.
	ReportedTotal int `json:"reported_total" yaml:"reported_total"`
	Fetched       int `json:"fetched" yaml:"fetched"`

	Join aggregate.JoinStats `json:"join" yaml:"join"`

	DistinctSymbols int `json:"distinct_symbols" yaml:"distinct_symbols"`
	DistinctRecords int `json:"distinct_records" yaml:"distinct_records"`

	TopSymbols []types.Count        `json:"top_symbols" yaml:"top_symbols"`
	TopRecords []types.Count        `json:"top_records" yaml:"top_records"`
	Enrichment []types.EnrichedTerm `json:"enrichment" yaml:"enrichment"`

	// Artifacts lists the files written by the run, relative to the
	// output directory.
	Artifacts []string `json:"artifacts" yaml:"artifacts"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewSummary returns a Summary with a fresh run id and timestamp.
func NewSummary(term string) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Term:      term,
	}
}

// Warn records a non-fatal condition.
func (s *Summary) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// WriteSummary writes s to dir/summary.yaml or dir/summary.json and
// returns the path written.
func WriteSummary(dir string, format types.SummaryFormat, s *Summary) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)
	switch format {
	case types.SummaryYAML, "":
		data, err = yaml.Marshal(s)
		ext = ".yaml"
	case types.SummaryJSON:
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
		ext = ".json"
	default:
		return "", CheckFormat(format)
	}
	if err != nil {
		return "", fmt.Errorf("marshaling summary: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, SummaryBase+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// CheckFormat reports whether WriteSummary accepts format. The empty
// format selects YAML.
func CheckFormat(format types.SummaryFormat) error {
	switch format {
	case types.SummaryYAML, types.SummaryJSON, "":
		return nil
	}
	return fmt.Errorf("unknown summary format %q (want yaml or json)", format)
}

// ReadSummary loads a summary written by WriteSummary. The format follows
// the file extension.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return &s, nil
}
