// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/genelit/pkg/types"
)

// GeneSet is one annotation term read from a GMT file.
type GeneSet struct {
	ID          string
	Description string
	Genes       map[string]struct{}
}

// Local runs over-representation analysis against gene sets loaded from a
// GMT file. The background is the union of all genes in the file.
type Local struct {
	sets     []GeneSet
	universe map[string]struct{}
	cutoff   float64
	category string
}

// NewLocal loads cfg.GMTPath and returns a Local enricher.
func NewLocal(cfg types.EnrichmentConfig, w io.Writer) (*Local, error) {
	if cfg.GMTPath == "" {
		return nil, fmt.Errorf("local enrichment needs a GMT file (enrichment.gmt_path)")
	}
	sets, err := LoadGMT(cfg.GMTPath)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = io.Discard
	}
	l := NewLocalFromSets(sets, cfg.PValueCutoff)
	l.category = strings.TrimSuffix(filepath.Base(cfg.GMTPath), filepath.Ext(cfg.GMTPath))
	fmt.Fprintf(w, "loaded: %d gene sets, %d background genes from %s\n", len(sets), len(l.universe), cfg.GMTPath)
	return l, nil
}

// NewLocalFromSets builds a Local enricher over sets. A non-positive
// cutoff uses DefaultPValueCutoff; a cutoff of 1 or more keeps every term.
func NewLocalFromSets(sets []GeneSet, cutoff float64) *Local {
	if cutoff <= 0 {
		cutoff = DefaultPValueCutoff
	}
	universe := make(map[string]struct{})
	for _, s := range sets {
		for g := range s.Genes {
			universe[g] = struct{}{}
		}
	}
	return &Local{sets: sets, universe: universe, cutoff: cutoff, category: "GMT"}
}

// Name returns the backend identifier.
func (l *Local) Name() string { return string(types.EnrichLocal) }

// Enrich tests every gene set sharing at least one gene with the query.
// P-values are hypergeometric upper tails, adjusted with
// Benjamini-Hochberg; terms with adjusted p above the cutoff are dropped.
func (l *Local) Enrich(ctx context.Context, req Request) ([]types.EnrichedTerm, error) {
	var query []string
	for _, s := range dedupe(req.Symbols) {
		if _, ok := l.universe[s]; ok {
			query = append(query, s)
		}
	}
	if len(query) == 0 {
		return nil, nil
	}

	population := len(l.universe)
	drawn := len(query)
	var terms []types.EnrichedTerm
	for _, set := range l.sets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEnrichment, err)
		}
		var hits []string
		for _, g := range query {
			if _, ok := set.Genes[g]; ok {
				hits = append(hits, g)
			}
		}
		if len(hits) == 0 {
			continue
		}
		p := HypergeomUpper(len(hits), population, len(set.Genes), drawn)
		terms = append(terms, types.EnrichedTerm{
			ID:          set.ID,
			Description: set.Description,
			Category:    l.category,
			PValue:      p,
			GeneRatio:   float64(len(hits)) / float64(drawn),
			Count:       len(hits),
			TermSize:    len(set.Genes),
			Genes:       hits,
		})
	}

	raw := make([]float64, len(terms))
	for i, t := range terms {
		raw[i] = t.PValue
	}
	for i, adj := range AdjustBH(raw) {
		terms[i].AdjustedPValue = adj
	}

	kept := terms[:0]
	for _, t := range terms {
		if t.AdjustedPValue <= l.cutoff {
			kept = append(kept, t)
		}
	}
	SortByAdjusted(kept)
	return kept, nil
}

// LoadGMT reads a GMT file: one gene set per line, tab-separated, with
// the set name, a description, and the member genes. Blank lines and
// lines starting with '#' are skipped.
func LoadGMT(path string) ([]GeneSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening GMT file: %w", ErrEnrichment, err)
	}
	defer f.Close()
	return ParseGMT(f)
}

// ParseGMT parses GMT content from r.
func ParseGMT(r io.Reader) ([]GeneSet, error) {
	var sets []GeneSet
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: GMT line %d has %d fields, want name, description, and genes", ErrEnrichment, line, len(fields))
		}
		set := GeneSet{
			ID:          strings.TrimSpace(fields[0]),
			Description: strings.TrimSpace(fields[1]),
			Genes:       make(map[string]struct{}, len(fields)-2),
		}
		for _, g := range fields[2:] {
			if g = strings.TrimSpace(g); g != "" {
				set.Genes[g] = struct{}{}
			}
		}
		if set.ID == "" || len(set.Genes) == 0 {
			continue
		}
		if set.Description == "" || set.Description == "na" {
			set.Description = set.ID
		}
		sets = append(sets, set)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading GMT: %w", ErrEnrichment, err)
	}
	return sets, nil
}
