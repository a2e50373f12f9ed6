// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/genelit/internal/httputil"
	"github.com/pdiddy/genelit/pkg/types"
)

const (
	defaultEUtilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	defaultDatabase   = "pubmed"
	defaultPageSize   = 10000
	defaultTool       = "genelit"

	// NCBI courtesy limits without and with an API key.
	anonymousRate = 3
	keyedRate     = 10
)

// EUtils searches an Entrez database through the esearch endpoint.
type EUtils struct {
	client   *http.Client
	cfg      types.FetchConfig
	limiter  *rate.Limiter
	progress io.Writer
}

// NewEUtils returns an esearch client. Zero config fields take the
// E-utilities defaults. Progress lines are written to w.
func NewEUtils(client *http.Client, cfg types.FetchConfig, w io.Writer) *EUtils {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEUtilsBase
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = anonymousRate
		if cfg.APIKey != "" {
			rps = keyedRate
		}
	}
	if w == nil {
		w = io.Discard
	}
	return &EUtils{
		client:   client,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		progress: w,
	}
}

// Name returns the backend identifier.
func (e *EUtils) Name() string { return string(types.FetchEUtils) }

// Fetch asks for one result to learn the match count, then pages through
// every retrievable identifier. A zero count returns an empty Result with
// ErrEmptyResult. On pubmed only the first PubMedRetrievalCap identifiers
// are retrieved; the Result is then marked Truncated and keeps the
// reported Total.
func (e *EUtils) Fetch(ctx context.Context, term string) (Result, error) {
	encoded, err := EncodeTerm(term)
	if err != nil {
		return Result{}, err
	}

	first, err := e.search(ctx, encoded, 0, 1)
	if err != nil {
		return Result{}, err
	}
	total, err := first.total()
	if err != nil {
		return Result{}, err
	}

	res := Result{
		IDs:              make(IDSet, retrievalLimit(e.cfg.Database, total)),
		Total:            total,
		QueryTranslation: strings.TrimSpace(first.QueryTranslation),
	}
	if total == 0 {
		return res, ErrEmptyResult
	}

	limit := retrievalLimit(e.cfg.Database, total)
	if limit < total {
		res.Truncated = true
		fmt.Fprintf(e.progress, "warning: %s esearch returns at most %d ids; retrieving %d of %d\n",
			e.cfg.Database, limit, limit, total)
	}

	pages := pageCount(limit, e.cfg.PageSize)
	for page := 0; page < pages; page++ {
		start := page * e.cfg.PageSize
		retMax := e.cfg.PageSize
		if res.Truncated {
			retMax = min(retMax, limit-start)
		}
		fmt.Fprintf(e.progress, "fetching: %s ids %d-%d of %d\n",
			e.cfg.Database, start+1, min(start+retMax, limit), total)

		body, err := e.search(ctx, encoded, start, retMax)
		if err != nil {
			return Result{}, err
		}
		for _, id := range body.IDList {
			rid := types.NewRecordID(id)
			if rid == "" {
				continue
			}
			res.IDs[rid] = struct{}{}
		}
	}
	return res, nil
}

// search issues one esearch request. encodedTerm is already escaped.
func (e *EUtils) search(ctx context.Context, encodedTerm string, retStart, retMax int) (*eSearchResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrTransport, err)
	}

	params := url.Values{
		"db":       {e.cfg.Database},
		"retstart": {strconv.Itoa(retStart)},
		"retmax":   {strconv.Itoa(retMax)},
		"tool":     {e.cfg.Tool},
	}
	if e.cfg.Email != "" {
		params.Set("email", e.cfg.Email)
	}
	if e.cfg.APIKey != "" {
		params.Set("api_key", e.cfg.APIKey)
	}
	// The term is appended by hand: Values.Encode would escape it twice.
	reqURL := e.cfg.BaseURL + "esearch.fcgi?" + params.Encode() + "&term=" + encodedTerm

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, e.client, req, e.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: esearch request: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: esearch returned HTTP %d", ErrTransport, resp.StatusCode)
	}

	var result eSearchResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: parsing esearch response: %w", ErrResponseFormat, err)
	}
	if msg := strings.TrimSpace(result.Error); msg != "" {
		return nil, fmt.Errorf("%w: esearch error: %s", ErrResponseFormat, msg)
	}
	return &result, nil
}

// eSearchResult mirrors the esearch XML document.
type eSearchResult struct {
	XMLName          xml.Name `xml:"eSearchResult"`
	Count            string   `xml:"Count"`
	RetMax           string   `xml:"RetMax"`
	RetStart         string   `xml:"RetStart"`
	IDList           []string `xml:"IdList>Id"`
	QueryTranslation string   `xml:"QueryTranslation"`
	Error            string   `xml:"ERROR"`
}

// total parses the Count element. A missing, non-numeric, or negative
// count is a format error.
func (r *eSearchResult) total() (int, error) {
	raw := strings.TrimSpace(r.Count)
	if raw == "" {
		return 0, fmt.Errorf("%w: esearch response has no Count", ErrResponseFormat)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: esearch Count %q: %w", ErrResponseFormat, raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: esearch Count is negative (%d)", ErrResponseFormat, n)
	}
	return n, nil
}
