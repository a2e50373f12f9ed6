// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/genelit/internal/httputil"
	"github.com/pdiddy/genelit/pkg/types"
)

// gprofilerAPIBase is the g:GOSt profiling endpoint. Declared as a var so
// tests can substitute an httptest server.
var gprofilerAPIBase = "https://biit.cs.ut.ee/gprofiler/api/gost/profile/"

// taxonOrganisms maps NCBI taxonomy ids to g:Profiler organism names.
var taxonOrganisms = map[string]string{
	"9606":   "hsapiens",
	"10090":  "mmusculus",
	"10116":  "rnorvegicus",
	"7955":   "drerio",
	"7227":   "dmelanogaster",
	"6239":   "celegans",
	"559292": "scerevisiae",
}

// GProfiler queries the g:Profiler g:GOSt service. Its p-values are
// already corrected (g:SCS), so PValue and AdjustedPValue are equal.
type GProfiler struct {
	client *http.Client
	cfg    types.EnrichmentConfig
}

// NewGProfiler returns a g:Profiler client.
func NewGProfiler(client *http.Client, cfg types.EnrichmentConfig) *GProfiler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = gprofilerAPIBase
	}
	if cfg.PValueCutoff <= 0 {
		cfg.PValueCutoff = DefaultPValueCutoff
	}
	return &GProfiler{client: client, cfg: cfg}
}

// Name returns the backend identifier.
func (g *GProfiler) Name() string { return string(types.EnrichGProfiler) }

// Enrich posts the gene set and returns the significant terms sorted by
// adjusted p-value.
func (g *GProfiler) Enrich(ctx context.Context, req Request) ([]types.EnrichedTerm, error) {
	symbols := dedupe(req.Symbols)
	if len(symbols) == 0 {
		return nil, nil
	}
	sources, err := gprofilerSources(req.Ontology)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnrichment, err)
	}

	body := gostRequest{
		Organism:      gprofilerOrganism(req.Organism),
		Query:         symbols,
		Sources:       sources,
		UserThreshold: g.cfg.PValueCutoff,
	}
	if strings.EqualFold(req.KeyType, "ENTREZID") {
		body.NumericNS = "ENTREZGENE_ACC"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrEnrichment, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrEnrichment, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, httpReq, g.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: g:Profiler request: %w", ErrEnrichment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: g:Profiler returned HTTP %d", ErrEnrichment, resp.StatusCode)
	}

	var gr gostResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%w: parsing g:Profiler response: %w", ErrEnrichment, err)
	}

	ensgToInput := gr.Meta.GenesMetadata.inputByEnsembl()
	ensgs := gr.Meta.GenesMetadata.Query.Query1.Ensgs

	terms := make([]types.EnrichedTerm, 0, len(gr.Result))
	for _, r := range gr.Result {
		t := types.EnrichedTerm{
			ID:             r.Native,
			Description:    r.Name,
			Category:       r.Source,
			PValue:         r.PValue,
			AdjustedPValue: r.PValue,
			Count:          r.IntersectionSize,
			TermSize:       r.TermSize,
		}
		if r.QuerySize > 0 {
			t.GeneRatio = float64(r.IntersectionSize) / float64(r.QuerySize)
		}
		t.Genes = intersectionGenes(r.Intersections, ensgs, ensgToInput)
		terms = append(terms, t)
	}
	SortByAdjusted(terms)
	return terms, nil
}

// gprofilerSources maps an ontology selector to g:Profiler data sources.
func gprofilerSources(ontology string) ([]string, error) {
	switch strings.ToUpper(ontology) {
	case "", "BP":
		return []string{"GO:BP"}, nil
	case "MF":
		return []string{"GO:MF"}, nil
	case "CC":
		return []string{"GO:CC"}, nil
	case "ALL":
		return []string{"GO:BP", "GO:MF", "GO:CC"}, nil
	}
	return nil, fmt.Errorf("unknown ontology %q (want BP, MF, CC, or ALL)", ontology)
}

// gprofilerOrganism accepts either a g:Profiler organism name or an NCBI
// taxonomy id.
func gprofilerOrganism(org string) string {
	if name, ok := taxonOrganisms[strings.TrimSpace(org)]; ok {
		return name
	}
	if org == "" {
		return DefaultOrganism
	}
	return org
}

// intersectionGenes returns the input genes whose evidence list in
// intersections is non-empty. intersections is aligned with ensgs.
func intersectionGenes(intersections [][]string, ensgs []string, input map[string]string) []string {
	var genes []string
	seen := make(map[string]struct{})
	for i, ev := range intersections {
		if len(ev) == 0 || i >= len(ensgs) {
			continue
		}
		name, ok := input[ensgs[i]]
		if !ok {
			name = ensgs[i]
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		genes = append(genes, name)
	}
	return genes
}

// g:GOSt JSON structures.
type gostRequest struct {
	Organism      string   `json:"organism"`
	Query         []string `json:"query"`
	Sources       []string `json:"sources"`
	UserThreshold float64  `json:"user_threshold"`
	NumericNS     string   `json:"numeric_ns,omitempty"`
	NoIEA         bool     `json:"no_iea"`
	NoEvidences   bool     `json:"no_evidences"`
}

type gostResponse struct {
	Result []gostResult `json:"result"`
	Meta   gostMeta     `json:"meta"`
}

type gostResult struct {
	Native           string     `json:"native"`
	Name             string     `json:"name"`
	Source           string     `json:"source"`
	PValue           float64    `json:"p_value"`
	TermSize         int        `json:"term_size"`
	QuerySize        int        `json:"query_size"`
	IntersectionSize int        `json:"intersection_size"`
	Intersections    [][]string `json:"intersections"`
}

type gostMeta struct {
	GenesMetadata gostGenesMetadata `json:"genes_metadata"`
}

type gostGenesMetadata struct {
	Query struct {
		Query1 struct {
			Ensgs   []string            `json:"ensgs"`
			Mapping map[string][]string `json:"mapping"`
		} `json:"query_1"`
	} `json:"query"`
}

// inputByEnsembl inverts the input-to-Ensembl mapping. When several inputs
// name one Ensembl id the lexically smallest wins.
func (m gostGenesMetadata) inputByEnsembl() map[string]string {
	out := make(map[string]string)
	for in, ids := range m.Query.Query1.Mapping {
		for _, id := range ids {
			if prev, ok := out[id]; !ok || in < prev {
				out[id] = in
			}
		}
	}
	return out
}
