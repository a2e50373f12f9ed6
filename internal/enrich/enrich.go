// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich runs over-representation analysis on a gene set. The
// statistics live behind the Enricher interface so backends can be
// swapped without touching the pipeline: GProfiler calls the g:Profiler
// web service, Local tests gene sets from a GMT file, and None disables
// the step.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/pdiddy/genelit/pkg/types"
)

// ErrEnrichment wraps every failure of an enrichment backend.
var ErrEnrichment = errors.New("enrichment failed")

// Defaults applied by New when the config leaves a field empty.
const (
	DefaultOrganism     = "hsapiens"
	DefaultOntology     = "BP"
	DefaultKeyType      = "SYMBOL"
	DefaultPValueCutoff = 0.05
	DefaultShowCategory = 10
)

// Enricher tests a gene set for over-represented annotation terms.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, req Request) ([]types.EnrichedTerm, error)
}

// Request is the input to one enrichment run.
type Request struct {
	// Symbols is the gene set, highest ranked first.
	Symbols []string

	// Organism selects the annotation database (e.g. "hsapiens").
	Organism string

	// Ontology selects the GO branch: BP, MF, or CC.
	Ontology string

	// KeyType names the identifier type of Symbols (SYMBOL or ENTREZID).
	KeyType string
}

// New returns the enricher selected by cfg.Backend. An empty backend
// selects g:Profiler.
func New(cfg types.EnrichmentConfig, client *http.Client, w io.Writer) (Enricher, error) {
	switch cfg.Backend {
	case types.EnrichGProfiler, "":
		return NewGProfiler(client, cfg), nil
	case types.EnrichLocal:
		return NewLocal(cfg, w)
	case types.EnrichNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown enrichment backend %q (want gprofiler, local, or none)", cfg.Backend)
	}
}

// NewRequest builds a Request from cfg, filling defaults.
func NewRequest(cfg types.EnrichmentConfig, symbols []string) Request {
	req := Request{
		Symbols:  symbols,
		Organism: cfg.Organism,
		Ontology: strings.ToUpper(cfg.Ontology),
		KeyType:  strings.ToUpper(cfg.KeyType),
	}
	if req.Organism == "" {
		req.Organism = DefaultOrganism
	}
	if req.Ontology == "" {
		req.Ontology = DefaultOntology
	}
	if req.KeyType == "" {
		req.KeyType = DefaultKeyType
	}
	return req
}

// None is the disabled backend. It returns no terms.
type None struct{}

// Name returns the backend identifier.
func (None) Name() string { return string(types.EnrichNone) }

// Enrich returns nil.
func (None) Enrich(context.Context, Request) ([]types.EnrichedTerm, error) { return nil, nil }

// SortByAdjusted orders terms by adjusted p-value, then raw p-value, then
// ID.
func SortByAdjusted(terms []types.EnrichedTerm) {
	slices.SortStableFunc(terms, func(a, b types.EnrichedTerm) int {
		switch {
		case a.AdjustedPValue < b.AdjustedPValue:
			return -1
		case a.AdjustedPValue > b.AdjustedPValue:
			return 1
		case a.PValue < b.PValue:
			return -1
		case a.PValue > b.PValue:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// dedupe drops blank and repeated symbols, keeping first occurrences.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
