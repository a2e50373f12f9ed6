// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves the set of literature record identifiers that
// match a free-text search term. The protocol is count-then-fetch: one
// request learns how many records match, then one or more paged requests
// retrieve every identifier. The calls are not transactional, so a result
// set that changes between them can yield a short or padded answer.
package fetch

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/genelit/pkg/types"
)

var (
	// ErrEmptyTerm is returned for a blank search term.
	ErrEmptyTerm = errors.New("search term is empty")

	// ErrTransport covers network, DNS, and timeout failures and non-2xx
	// responses.
	ErrTransport = errors.New("transport failure")

	// ErrResponseFormat covers unparseable or unexpected response bodies.
	ErrResponseFormat = errors.New("unexpected response format")

	// ErrEmptyResult signals that the search matched nothing. It is a
	// warning: the accompanying Result is valid and empty.
	ErrEmptyResult = errors.New("search matched no records")
)

// Fetcher returns the identifiers of every record matching a term.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, term string) (Result, error)
}

// Result is the outcome of one search.
type Result struct {
	// IDs holds each matching identifier once.
	IDs IDSet

	// Total is the match count the service reported on the first call.
	Total int

	// QueryTranslation is the service's expansion of the term, if reported.
	QueryTranslation string

	// Truncated is set when the database caps retrieval below Total and
	// IDs holds only the first retrievable identifiers.
	Truncated bool
}

// IDSet is a set of record identifiers.
type IDSet map[types.RecordID]struct{}

// NewIDSet builds a set from ids, dropping duplicates.
func NewIDSet(ids ...types.RecordID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id types.RecordID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identifiers in ascending CompareIDs order.
func (s IDSet) Sorted() []types.RecordID {
	out := make([]types.RecordID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.SortFunc(out, CompareIDs)
	return out
}

// CompareIDs orders numeric identifiers by value, ahead of any
// non-numeric ones, which compare as strings.
func CompareIDs(a, b types.RecordID) int {
	na, errA := strconv.Atoi(string(a))
	nb, errB := strconv.Atoi(string(b))
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// PubMedRetrievalCap is the number of PubMed identifiers esearch will
// page through for one query. Requests with retstart above 9998 are
// rejected with an ERROR element.
const PubMedRetrievalCap = 9999

// retrievalLimit returns how many of total identifiers can be retrieved
// from db.
func retrievalLimit(db string, total int) int {
	if strings.EqualFold(db, "pubmed") {
		return min(total, PubMedRetrievalCap)
	}
	return total
}

// pageCount returns how many pages of size pageSize cover total.
func pageCount(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
