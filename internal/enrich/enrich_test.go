// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genelit/internal/httputil"
	"github.com/pdiddy/genelit/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// --- Statistics ---

func TestHypergeomUpper(t *testing.T) {
	tests := []struct {
		name       string
		k, N, K, n int
		want       float64
	}{
		{"two of three", 2, 10, 4, 3, 40.0 / 120.0},
		{"all drawn hit", 3, 10, 4, 3, 4.0 / 120.0},
		{"zero hits", 0, 10, 4, 3, 1},
		{"impossible", 4, 10, 4, 3, 0},
		{"five of five", 5, 20, 5, 5, 1.0 / 15504.0},
		{"one of two", 1, 10, 4, 2, 1 - 15.0/45.0},
		{"forced overlap", 1, 5, 4, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HypergeomUpper(tt.k, tt.N, tt.K, tt.n)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestHypergeomUpperInvalid(t *testing.T) {
	assert.True(t, math.IsNaN(HypergeomUpper(1, 5, 6, 2)))
	assert.True(t, math.IsNaN(HypergeomUpper(1, 5, 2, 6)))
}

func TestAdjustBH(t *testing.T) {
	got := AdjustBH([]float64{0.01, 0.04, 0.03, 0.005})
	want := []float64{0.02, 0.04, 0.04, 0.02}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}
	assert.Empty(t, AdjustBH(nil))
}

func TestAdjustBHMonotone(t *testing.T) {
	p := []float64{0.2, 0.001, 0.5, 0.03, 0.03, 0.9, 0.04}
	adj := AdjustBH(p)
	for i := range p {
		assert.GreaterOrEqual(t, adj[i], p[i])
		assert.LessOrEqual(t, adj[i], 1.0)
		for j := range p {
			if p[i] < p[j] {
				assert.LessOrEqual(t, adj[i], adj[j], "p[%d]=%v p[%d]=%v", i, p[i], j, p[j])
			}
		}
	}
}

// --- Local backend ---

const testGMT = "# test sets\n" +
	"SET_A\tapoptotic process\tG1\tG2\tG3\tG4\n" +
	"SET_B\tcell cycle\tG5\tG6\tG7\tG8\n" +
	"\n" +
	"SET_C\tna\tG9\tG10\n"

func TestParseGMT(t *testing.T) {
	sets, err := ParseGMT(strings.NewReader(testGMT))
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, "SET_A", sets[0].ID)
	assert.Equal(t, "apoptotic process", sets[0].Description)
	assert.Len(t, sets[0].Genes, 4)
	assert.Equal(t, "SET_C", sets[2].Description)
}

func TestParseGMTShortLine(t *testing.T) {
	_, err := ParseGMT(strings.NewReader("SET_A\tonly description\n"))
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.ErrorContains(t, err, "line 1")
}

func TestLocalEnrich(t *testing.T) {
	sets, err := ParseGMT(strings.NewReader(testGMT))
	require.NoError(t, err)
	l := NewLocalFromSets(sets, 0)

	terms, err := l.Enrich(context.Background(), Request{Symbols: []string{"G1", "G2", "G3", "UNKNOWN", "G1"}})
	require.NoError(t, err)
	require.Len(t, terms, 1)

	got := terms[0]
	assert.Equal(t, "SET_A", got.ID)
	assert.Equal(t, "apoptotic process", got.Description)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 4, got.TermSize)
	assert.InDelta(t, 1.0, got.GeneRatio, 1e-12)
	assert.InDelta(t, 4.0/120.0, got.PValue, 1e-12)
	assert.InDelta(t, 4.0/120.0, got.AdjustedPValue, 1e-12)
	assert.Equal(t, []string{"G1", "G2", "G3"}, got.Genes)
}

func TestLocalEnrichCutoff(t *testing.T) {
	sets, err := ParseGMT(strings.NewReader(testGMT))
	require.NoError(t, err)

	strict := NewLocalFromSets(sets, 0.01)
	terms, err := strict.Enrich(context.Background(), Request{Symbols: []string{"G1", "G2", "G3"}})
	require.NoError(t, err)
	assert.Empty(t, terms)

	all := NewLocalFromSets(sets, 1)
	terms, err = all.Enrich(context.Background(), Request{Symbols: []string{"G5", "G1"}})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "SET_A", terms[0].ID)
	assert.Equal(t, "SET_B", terms[1].ID)
	assert.InDelta(t, 1-15.0/45.0, terms[0].AdjustedPValue, 1e-12)
}

func TestLocalEnrichNoOverlap(t *testing.T) {
	sets, err := ParseGMT(strings.NewReader(testGMT))
	require.NoError(t, err)
	terms, err := NewLocalFromSets(sets, 0).Enrich(context.Background(), Request{Symbols: []string{"TP53"}})
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestNewLocalFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go_bp.gmt")
	require.NoError(t, os.WriteFile(path, []byte(testGMT), 0o644))

	var progress strings.Builder
	l, err := NewLocal(types.EnrichmentConfig{GMTPath: path}, &progress)
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "loaded: 3 gene sets, 10 background genes")

	terms, err := l.Enrich(context.Background(), Request{Symbols: []string{"G1", "G2", "G3"}})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "go_bp", terms[0].Category)
}

func TestNewLocalMissingFile(t *testing.T) {
	_, err := NewLocal(types.EnrichmentConfig{GMTPath: filepath.Join(t.TempDir(), "none.gmt")}, nil)
	assert.ErrorIs(t, err, ErrEnrichment)

	_, err = NewLocal(types.EnrichmentConfig{}, nil)
	assert.ErrorContains(t, err, "gmt_path")
}

// --- g:Profiler backend ---

const gostBody = `{
  "result": [
    {"native": "GO:0008283", "name": "cell population proliferation", "source": "GO:BP",
     "p_value": 0.002, "term_size": 1500, "query_size": 2, "intersection_size": 1,
     "intersections": [[], ["IEA"]]},
    {"native": "GO:0006915", "name": "apoptotic process", "source": "GO:BP",
     "p_value": 0.0001, "term_size": 900, "query_size": 2, "intersection_size": 2,
     "intersections": [["IDA"], ["IMP", "IEA"]]}
  ],
  "meta": {"genes_metadata": {"query": {"query_1": {
    "ensgs": ["ENSG00000141510", "ENSG00000146648"],
    "mapping": {"TP53": ["ENSG00000141510"], "EGFR": ["ENSG00000146648"]}
  }}}}
}`

func gostServer(t *testing.T, status int, body string, captured *gostRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGProfilerEnrich(t *testing.T) {
	var got gostRequest
	ts := gostServer(t, http.StatusOK, gostBody, &got)

	g := NewGProfiler(ts.Client(), types.EnrichmentConfig{BaseURL: ts.URL})
	terms, err := g.Enrich(context.Background(), Request{
		Symbols:  []string{"TP53", "EGFR", "TP53"},
		Organism: "9606",
		Ontology: "BP",
		KeyType:  "SYMBOL",
	})
	require.NoError(t, err)

	assert.Equal(t, "hsapiens", got.Organism)
	assert.Equal(t, []string{"TP53", "EGFR"}, got.Query)
	assert.Equal(t, []string{"GO:BP"}, got.Sources)
	assert.Empty(t, got.NumericNS)
	assert.InDelta(t, 0.05, got.UserThreshold, 1e-12)

	require.Len(t, terms, 2)
	assert.Equal(t, "GO:0006915", terms[0].ID)
	assert.Equal(t, "apoptotic process", terms[0].Description)
	assert.Equal(t, "GO:BP", terms[0].Category)
	assert.InDelta(t, 0.0001, terms[0].AdjustedPValue, 1e-12)
	assert.InDelta(t, 1.0, terms[0].GeneRatio, 1e-12)
	assert.Equal(t, 2, terms[0].Count)
	assert.Equal(t, []string{"TP53", "EGFR"}, terms[0].Genes)

	assert.Equal(t, "GO:0008283", terms[1].ID)
	assert.InDelta(t, 0.5, terms[1].GeneRatio, 1e-12)
	assert.Equal(t, []string{"EGFR"}, terms[1].Genes)
}

func TestGProfilerEntrezKeys(t *testing.T) {
	var got gostRequest
	ts := gostServer(t, http.StatusOK, `{"result": []}`, &got)

	g := NewGProfiler(ts.Client(), types.EnrichmentConfig{BaseURL: ts.URL, PValueCutoff: 0.01})
	terms, err := g.Enrich(context.Background(), Request{
		Symbols:  []string{"7157"},
		Organism: "mmusculus",
		Ontology: "all",
		KeyType:  "entrezid",
	})
	require.NoError(t, err)
	assert.Empty(t, terms)
	assert.Equal(t, "ENTREZGENE_ACC", got.NumericNS)
	assert.Equal(t, "mmusculus", got.Organism)
	assert.Equal(t, []string{"GO:BP", "GO:MF", "GO:CC"}, got.Sources)
	assert.InDelta(t, 0.01, got.UserThreshold, 1e-12)
}

func TestGProfilerOrganism(t *testing.T) {
	tests := map[string]string{
		"9606":      "hsapiens",
		"10090":     "mmusculus",
		" 7955 ":    "drerio",
		"mmusculus": "mmusculus",
		"":          DefaultOrganism,
	}
	for in, want := range tests {
		assert.Equal(t, want, gprofilerOrganism(in), "organism %q", in)
	}
}

func TestGProfilerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"client error", http.StatusBadRequest, `{"message": "bad organism"}`, "HTTP 400"},
		{"server error after retries", http.StatusServiceUnavailable, ``, "HTTP 503"},
		{"malformed JSON", http.StatusOK, `{"result": [`, "parsing g:Profiler response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := gostServer(t, tt.status, tt.body, nil)
			g := NewGProfiler(ts.Client(), types.EnrichmentConfig{BaseURL: ts.URL})
			_, err := g.Enrich(context.Background(), Request{Symbols: []string{"TP53"}})
			assert.ErrorIs(t, err, ErrEnrichment)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestGProfilerUnknownOntology(t *testing.T) {
	g := NewGProfiler(http.DefaultClient, types.EnrichmentConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := g.Enrich(context.Background(), Request{Symbols: []string{"TP53"}, Ontology: "KEGG"})
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.ErrorContains(t, err, "unknown ontology")
}

func TestGProfilerEmptyQuery(t *testing.T) {
	g := NewGProfiler(http.DefaultClient, types.EnrichmentConfig{BaseURL: "http://127.0.0.1:0"})
	terms, err := g.Enrich(context.Background(), Request{Symbols: []string{" ", ""}})
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestGProfilerDefaultBase(t *testing.T) {
	g := NewGProfiler(http.DefaultClient, types.EnrichmentConfig{})
	assert.Equal(t, gprofilerAPIBase, g.cfg.BaseURL)
}

// --- Factory and helpers ---

func TestNew(t *testing.T) {
	e, err := New(types.EnrichmentConfig{}, http.DefaultClient, nil)
	require.NoError(t, err)
	assert.Equal(t, "gprofiler", e.Name())

	e, err = New(types.EnrichmentConfig{Backend: types.EnrichNone}, http.DefaultClient, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", e.Name())
	terms, err := e.Enrich(context.Background(), Request{Symbols: []string{"TP53"}})
	assert.NoError(t, err)
	assert.Nil(t, terms)

	_, err = New(types.EnrichmentConfig{Backend: "david"}, http.DefaultClient, nil)
	assert.ErrorContains(t, err, `unknown enrichment backend "david"`)
}

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest(types.EnrichmentConfig{Ontology: "mf"}, []string{"TP53"})
	assert.Equal(t, Request{Symbols: []string{"TP53"}, Organism: "hsapiens", Ontology: "MF", KeyType: "SYMBOL"}, req)
}

func TestSortByAdjusted(t *testing.T) {
	terms := []types.EnrichedTerm{
		{ID: "C", AdjustedPValue: 0.01, PValue: 0.001},
		{ID: "B", AdjustedPValue: 0.01, PValue: 0.001},
		{ID: "A", AdjustedPValue: 0.02, PValue: 0.0001},
		{ID: "D", AdjustedPValue: 0.01, PValue: 0.0005},
	}
	SortByAdjusted(terms)
	ids := make([]string, len(terms))
	for i, term := range terms {
		ids[i] = term.ID
	}
	assert.Equal(t, []string{"D", "B", "C", "A"}, ids)
}
