// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/ncbi"
	"github.com/biogo/ncbi/entrez"

	"github.com/pdiddy/genelit/pkg/types"
)

// doSearch is entrez.DoSearch. Declared as a var so tests can substitute
// canned responses.
var doSearch = entrez.DoSearch

// Entrez runs the count-then-fetch protocol through the biogo entrez
// client. biogo handles query escaping and its own request pacing.
type Entrez struct {
	cfg      types.FetchConfig
	progress io.Writer
}

// NewEntrez returns the biogo-backed fetcher. cfg.Timeout is applied to
// the biogo package-level client.
func NewEntrez(cfg types.FetchConfig, w io.Writer) *Entrez {
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}
	if cfg.Timeout > 0 {
		ncbi.SetTimeout(cfg.Timeout)
	}
	if w == nil {
		w = io.Discard
	}
	return &Entrez{cfg: cfg, progress: w}
}

// Name returns the backend identifier.
func (e *Entrez) Name() string { return string(types.FetchEntrez) }

// Fetch implements Fetcher. biogo calls are not context aware; ctx is
// checked between pages.
func (e *Entrez) Fetch(ctx context.Context, term string) (Result, error) {
	query := NormalizeTerm(term)
	if query == "" {
		return Result{}, ErrEmptyTerm
	}

	first, err := doSearch(e.cfg.Database, query, e.params(0, 1), nil, e.cfg.Tool, e.cfg.Email)
	if err != nil {
		return Result{}, classifyEntrezError(err)
	}
	if first.Count < 0 {
		return Result{}, fmt.Errorf("%w: entrez count is negative (%d)", ErrResponseFormat, first.Count)
	}

	total := first.Count
	res := Result{IDs: make(IDSet, retrievalLimit(e.cfg.Database, total)), Total: total}
	if first.QueryTranslation != nil {
		res.QueryTranslation = strings.TrimSpace(*first.QueryTranslation)
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
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		start := page * e.cfg.PageSize
		retMax := min(e.cfg.PageSize, limit-start)
		fmt.Fprintf(e.progress, "fetching: %s ids %d-%d of %d (entrez)\n",
			e.cfg.Database, start+1, start+retMax, total)

		s, err := doSearch(e.cfg.Database, query, e.params(start, retMax), nil, e.cfg.Tool, e.cfg.Email)
		if err != nil {
			return Result{}, classifyEntrezError(err)
		}
		for _, id := range s.IdList {
			res.IDs[types.RecordID(strconv.Itoa(id))] = struct{}{}
		}
	}
	return res, nil
}

// params builds the esearch parameters for one page. The API key rides
// along as a query parameter.
func (e *Entrez) params(retStart, retMax int) *entrez.Parameters {
	return &entrez.Parameters{RetStart: retStart, RetMax: retMax, APIKey: e.cfg.APIKey}
}

// classifyEntrezError maps biogo errors onto the fetch error taxonomy.
func classifyEntrezError(err error) error {
	var syntaxErr *xml.SyntaxError
	var strconvErr *strconv.NumError
	if errors.As(err, &syntaxErr) || errors.As(err, &strconvErr) {
		return fmt.Errorf("%w: entrez response: %w", ErrResponseFormat, err)
	}
	return fmt.Errorf("%w: entrez request: %w", ErrTransport, err)
}
