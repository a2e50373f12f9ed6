// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/biogo/ncbi/entrez"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genelit/internal/httputil"
	"github.com/pdiddy/genelit/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// --- EncodeTerm ---

func TestEncodeTerm(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{"single word", "cancer", "cancer"},
		{"spaces become plus", "breast cancer", "breast+cancer"},
		{"collapses whitespace", "  breast \t cancer  ", "breast+cancer"},
		{"double quote", `"breast cancer"`, "%22breast+cancer%22"},
		{"single quote", "alzheimer's", "alzheimer%27s"},
		{"hyphen", "covid-19", "covid%2D19"},
		{"slash", "and/or", "and%2For"},
		{"field tag", "tp53[gene]", "tp53%5Bgene%5D"},
		{"fullwidth folded", "ｃａｎｃｅｒ", "cancer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeTerm(tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeTermEmpty(t *testing.T) {
	for _, term := range []string{"", "   ", "\t\n"} {
		_, err := EncodeTerm(term)
		assert.ErrorIs(t, err, ErrEmptyTerm)
	}
}

// --- IDSet ---

func TestIDSetDropsDuplicates(t *testing.T) {
	s := NewIDSet("100", "101", "100")
	assert.Len(t, s, 2)
	assert.True(t, s.Has("100"))
	assert.False(t, s.Has("102"))
}

func TestIDSetSortedNumeric(t *testing.T) {
	s := NewIDSet("1000", "99", "100")
	assert.Equal(t, []types.RecordID{"99", "100", "1000"}, s.Sorted())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
}

// --- EUtils ---

// esearchServer serves esearch responses for a fixed id list, honouring
// retstart and retmax. It records every query it receives.
type esearchServer struct {
	mu      sync.Mutex
	ids     []string
	queries []string
}

func (s *esearchServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.queries = append(s.queries, r.URL.RawQuery)
		s.mu.Unlock()

		assert.True(t, strings.HasSuffix(r.URL.Path, "/esearch.fcgi"), "path %s", r.URL.Path)
		start, _ := strconv.Atoi(r.URL.Query().Get("retstart"))
		retMax, _ := strconv.Atoi(r.URL.Query().Get("retmax"))
		end := min(start+retMax, len(s.ids))

		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE eSearchResult PUBLIC "-//NLM//DTD esearch 20060628//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20060628/esearch.dtd">
<eSearchResult><Count>%d</Count><RetMax>%d</RetMax><RetStart>%d</RetStart><IdList>`, len(s.ids), end-start, start)
		for _, id := range s.ids[min(start, end):end] {
			fmt.Fprintf(w, "<Id>%s</Id>\n", id)
		}
		fmt.Fprint(w, `</IdList><TranslationSet/><QueryTranslation>"breast neoplasms"[MeSH Terms]</QueryTranslation></eSearchResult>`)
	}
}

func testFetchCfg(baseURL string) types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    5 * time.Second,
			UserAgent:  "genelit-test/0.1",
			MaxRetries: 2,
		},
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
	}
}

func TestEUtilsFetchTwoCalls(t *testing.T) {
	srv := &esearchServer{ids: []string{"100", "101", "102"}}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	var progress strings.Builder
	f := NewEUtils(ts.Client(), testFetchCfg(ts.URL), &progress)
	res, err := f.Fetch(context.Background(), "breast cancer")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, NewIDSet("100", "101", "102"), res.IDs)
	assert.Equal(t, `"breast neoplasms"[MeSH Terms]`, res.QueryTranslation)
	require.Len(t, srv.queries, 2)
	assert.Contains(t, srv.queries[0], "retmax=1")
	assert.Contains(t, srv.queries[0], "term=breast+cancer")
	assert.Contains(t, srv.queries[0], "db=pubmed")
	assert.Contains(t, srv.queries[1], "retmax=10000")
	assert.Contains(t, progress.String(), "fetching: pubmed ids 1-3 of 3")
}

func TestEUtilsFetchPaginates(t *testing.T) {
	var ids []string
	for i := 1; i <= 7; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	srv := &esearchServer{ids: ids}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	cfg := testFetchCfg(ts.URL)
	cfg.PageSize = 3
	res, err := NewEUtils(ts.Client(), cfg, nil).Fetch(context.Background(), "tp53")
	require.NoError(t, err)

	assert.Len(t, res.IDs, 7)
	// 1 count call + 3 pages.
	require.Len(t, srv.queries, 4)
	assert.Contains(t, srv.queries[3], "retstart=6")
}

func TestEUtilsFetchNormalizesIDs(t *testing.T) {
	srv := &esearchServer{ids: []string{"00100", " 101 ", "100"}}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	res, err := NewEUtils(ts.Client(), testFetchCfg(ts.URL), nil).Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("100", "101"), res.IDs)
}

func TestEUtilsFetchSendsCredentials(t *testing.T) {
	srv := &esearchServer{ids: []string{"1"}}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	cfg := testFetchCfg(ts.URL)
	cfg.APIKey = "k123"
	cfg.Email = "me@example.org"
	_, err := NewEUtils(ts.Client(), cfg, nil).Fetch(context.Background(), "x")
	require.NoError(t, err)

	assert.Contains(t, srv.queries[0], "api_key=k123")
	assert.Contains(t, srv.queries[0], "email=me%40example.org")
	assert.Contains(t, srv.queries[0], "tool=genelit")
}

func TestEUtilsFetchEmptyResult(t *testing.T) {
	srv := &esearchServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	res, err := NewEUtils(ts.Client(), testFetchCfg(ts.URL), nil).Fetch(context.Background(), "nothing matches this")
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.False(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrResponseFormat))
	assert.NotNil(t, res.IDs)
	assert.Empty(t, res.IDs)
	assert.Equal(t, 0, res.Total)
	// No page requests after a zero count.
	assert.Len(t, srv.queries, 1)
}

func TestEUtilsFetchFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "this is not xml"},
		{"wrong root", "<html><body>maintenance</body></html>"},
		{"error element", "<eSearchResult><ERROR>Invalid query syntax</ERROR></eSearchResult>"},
		{"missing count", "<eSearchResult><IdList></IdList></eSearchResult>"},
		{"non-numeric count", "<eSearchResult><Count>many</Count></eSearchResult>"},
		{"negative count", "<eSearchResult><Count>-4</Count></eSearchResult>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			_, err := NewEUtils(ts.Client(), testFetchCfg(ts.URL), nil).Fetch(context.Background(), "x")
			assert.ErrorIs(t, err, ErrResponseFormat)
			assert.False(t, errors.Is(err, ErrTransport))
		})
	}
}

func TestEUtilsFetchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := NewEUtils(ts.Client(), testFetchCfg(ts.URL), nil).Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestEUtilsFetchRetriesServerError(t *testing.T) {
	srv := &esearchServer{ids: []string{"5"}}
	var mu sync.Mutex
	failed := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		first := !failed
		failed = true
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		srv.handler(t)(w, r)
	}))
	defer ts.Close()

	res, err := NewEUtils(ts.Client(), testFetchCfg(ts.URL), nil).Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("5"), res.IDs)
}

func TestEUtilsFetchUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	client := ts.Client()
	ts.Close()

	_, err := NewEUtils(client, testFetchCfg(url), nil).Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestEUtilsFetchEmptyTerm(t *testing.T) {
	_, err := NewEUtils(http.DefaultClient, testFetchCfg("http://unused.invalid"), nil).Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyTerm)
}

// cappedServer mimics PubMed: it reports count matches but rejects any
// retstart above 9998 with an ERROR element.
func cappedServer(count int, queries *[]url.Values) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		*queries = append(*queries, q)
		start, _ := strconv.Atoi(q.Get("retstart"))
		retMax, _ := strconv.Atoi(q.Get("retmax"))

		w.Header().Set("Content-Type", "text/xml")
		if start > 9998 {
			fmt.Fprint(w, `<eSearchResult><ERROR>Search Backend failed: Exception:
'retstart' cannot be larger than 9998. For PubMed, ESearch can only retrieve the first 9,999 records matching the query.</ERROR></eSearchResult>`)
			return
		}
		fmt.Fprintf(w, `<eSearchResult><Count>%d</Count><IdList>`, count)
		for i := start; i < min(start+retMax, count); i++ {
			fmt.Fprintf(w, "<Id>%d</Id>", 40000000+i)
		}
		fmt.Fprint(w, `</IdList></eSearchResult>`)
	}))
}

func TestEUtilsFetchPubMedCap(t *testing.T) {
	var queries []url.Values
	ts := cappedServer(25000, &queries)
	defer ts.Close()

	var progress strings.Builder
	cfg := testFetchCfg(ts.URL)
	cfg.PageSize = 4000
	res, err := NewEUtils(ts.Client(), cfg, &progress).Fetch(context.Background(), "breast cancer")
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.Equal(t, 25000, res.Total)
	assert.Len(t, res.IDs, PubMedRetrievalCap)
	assert.Contains(t, progress.String(), "retrieving 9999 of 25000")

	require.Len(t, queries, 4)
	for _, q := range queries[1:] {
		start, _ := strconv.Atoi(q.Get("retstart"))
		retMax, _ := strconv.Atoi(q.Get("retmax"))
		assert.LessOrEqual(t, start+retMax, PubMedRetrievalCap)
	}
	assert.Equal(t, "1999", queries[3].Get("retmax"))
}

func TestEUtilsFetchOtherDatabaseNotCapped(t *testing.T) {
	srv := &esearchServer{ids: []string{"1", "2", "3", "4", "5"}}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	cfg := testFetchCfg(ts.URL)
	cfg.Database = "gene"
	cfg.PageSize = 2
	res, err := NewEUtils(ts.Client(), cfg, nil).Fetch(context.Background(), "tp53")
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	assert.Len(t, res.IDs, 5)
}

func TestRetrievalLimit(t *testing.T) {
	assert.Equal(t, 100, retrievalLimit("pubmed", 100))
	assert.Equal(t, PubMedRetrievalCap, retrievalLimit("pubmed", 25000))
	assert.Equal(t, PubMedRetrievalCap, retrievalLimit("PubMed", 25000))
	assert.Equal(t, 25000, retrievalLimit("gene", 25000))
}

// --- Entrez ---

func stubDoSearch(t *testing.T, ids []int, err error) *[]entrez.Parameters {
	t.Helper()
	var calls []entrez.Parameters
	old := doSearch
	doSearch = func(db, query string, p *entrez.Parameters, h *entrez.History, tool, email string) (*entrez.Search, error) {
		calls = append(calls, *p)
		if err != nil {
			return nil, err
		}
		end := len(ids)
		if p.RetMax > 0 {
			end = min(p.RetStart+p.RetMax, len(ids))
		}
		translation := `"breast neoplasms"[MeSH Terms]`
		return &entrez.Search{
			Count:            len(ids),
			IdList:           ids[min(p.RetStart, end):end],
			QueryTranslation: &translation,
		}, nil
	}
	t.Cleanup(func() { doSearch = old })
	return &calls
}

func TestEntrezFetch(t *testing.T) {
	calls := stubDoSearch(t, []int{10, 11, 12, 13}, nil)

	cfg := testFetchCfg("")
	cfg.PageSize = 3
	res, err := NewEntrez(cfg, nil).Fetch(context.Background(), "brca1")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.False(t, res.Truncated)
	assert.Equal(t, `"breast neoplasms"[MeSH Terms]`, res.QueryTranslation)
	assert.Equal(t, NewIDSet("10", "11", "12", "13"), res.IDs)
	require.Len(t, *calls, 3)
	assert.Equal(t, 1, (*calls)[0].RetMax)
	assert.Equal(t, 3, (*calls)[2].RetStart)
}

func TestEntrezFetchSendsAPIKey(t *testing.T) {
	calls := stubDoSearch(t, []int{10}, nil)

	cfg := testFetchCfg("")
	cfg.APIKey = "secret-key"
	_, err := NewEntrez(cfg, nil).Fetch(context.Background(), "brca1")
	require.NoError(t, err)
	for _, p := range *calls {
		assert.Equal(t, "secret-key", p.APIKey)
	}
}

func TestEntrezFetchPubMedCap(t *testing.T) {
	ids := make([]int, 12000)
	for i := range ids {
		ids[i] = i + 1
	}
	calls := stubDoSearch(t, ids, nil)

	cfg := testFetchCfg("")
	cfg.PageSize = 4000
	res, err := NewEntrez(cfg, nil).Fetch(context.Background(), "breast cancer")
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.Equal(t, 12000, res.Total)
	assert.Len(t, res.IDs, PubMedRetrievalCap)
	for _, p := range (*calls)[1:] {
		assert.LessOrEqual(t, p.RetStart+p.RetMax, PubMedRetrievalCap)
	}
}

func TestEntrezFetchEmpty(t *testing.T) {
	stubDoSearch(t, nil, nil)

	res, err := NewEntrez(testFetchCfg(""), nil).Fetch(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Empty(t, res.IDs)
}

func TestEntrezFetchClassifiesErrors(t *testing.T) {
	stubDoSearch(t, nil, &strconv.NumError{Func: "Atoi", Num: "x", Err: strconv.ErrSyntax})
	_, err := NewEntrez(testFetchCfg(""), nil).Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrResponseFormat)

	stubDoSearch(t, nil, errors.New("dial tcp: no such host"))
	_, err = NewEntrez(testFetchCfg(""), nil).Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransport)
}
