// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate joins the mapping and cross-reference tables, filters
// the joined rows to the identifiers returned by a search, and ranks the
// resulting counts. Every function is pure: the same input always yields
// the same output.
package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/genelit/internal/fetch"
	"github.com/pdiddy/genelit/pkg/types"
)

// ErrJoinIntegrity reports that too many mapping rows found no symbol,
// which usually means the two tables disagree on identifier format.
var ErrJoinIntegrity = errors.New("join integrity")

// DefaultMaxUnmapped is the unmapped fraction above which CheckIntegrity
// fails.
const DefaultMaxUnmapped = 0.5

// JoinStats describes one join.
type JoinStats struct {
	MappingRows int `json:"mapping_rows" yaml:"mapping_rows"`
	Unmapped    int `json:"unmapped" yaml:"unmapped"`
	Duplicates  int `json:"duplicates" yaml:"duplicates"`
	Joined      int `json:"joined" yaml:"joined"`
}

// UnmappedFraction is Unmapped / MappingRows, or 0 for an empty mapping.
func (s JoinStats) UnmappedFraction() float64 {
	if s.MappingRows == 0 {
		return 0
	}
	return float64(s.Unmapped) / float64(s.MappingRows)
}

// Join attaches a symbol to every mapping row and returns the distinct
// (record, symbol) pairs in first-appearance order. Rows whose entity has
// no symbol are dropped. When an entity has several cross-reference rows
// the first one wins.
func Join(mapping []types.MappingRow, crossref []types.CrossRefRow) []types.JoinedRow {
	rows, _ := JoinWithStats(mapping, crossref)
	return rows
}

// JoinWithStats is Join that also reports how many rows were dropped.
func JoinWithStats(mapping []types.MappingRow, crossref []types.CrossRefRow) ([]types.JoinedRow, JoinStats) {
	symbols := make(map[string]string, len(crossref))
	for _, c := range crossref {
		if c.Symbol == "" {
			continue
		}
		if _, ok := symbols[c.EntityID]; !ok {
			symbols[c.EntityID] = c.Symbol
		}
	}

	stats := JoinStats{MappingRows: len(mapping)}
	seen := make(map[types.JoinedRow]struct{}, len(mapping))
	out := make([]types.JoinedRow, 0, len(mapping))
	for _, m := range mapping {
		sym, ok := symbols[m.EntityID]
		if !ok {
			stats.Unmapped++
			continue
		}
		row := types.JoinedRow{RecordID: m.RecordID, Symbol: sym}
		if _, dup := seen[row]; dup {
			stats.Duplicates++
			continue
		}
		seen[row] = struct{}{}
		out = append(out, row)
	}
	stats.Joined = len(out)
	return out, stats
}

// CheckIntegrity returns ErrJoinIntegrity when the unmapped fraction in
// stats exceeds maxUnmapped. A threshold of 1 or more disables the check;
// a non-positive threshold uses DefaultMaxUnmapped.
func CheckIntegrity(stats JoinStats, maxUnmapped float64) error {
	if maxUnmapped <= 0 {
		maxUnmapped = DefaultMaxUnmapped
	}
	if maxUnmapped >= 1 {
		return nil
	}
	if f := stats.UnmappedFraction(); f > maxUnmapped {
		return fmt.Errorf("%w: %d of %d mapping rows (%.0f%%) have no symbol, limit is %.0f%%; check that both tables use the same identifier column",
			ErrJoinIntegrity, stats.Unmapped, stats.MappingRows, f*100, maxUnmapped*100)
	}
	return nil
}

// FilterAndCount keeps the joined rows whose record is in ids and counts
// them per symbol and per record. Both results are sorted by key. An
// empty id set yields two empty, non-nil slices.
func FilterAndCount(joined []types.JoinedRow, ids fetch.IDSet) ([]types.SymbolCount, []types.RecordCount) {
	bySymbol := make(map[string]int)
	byRecord := make(map[types.RecordID]int)
	for _, row := range joined {
		if !ids.Has(row.RecordID) {
			continue
		}
		bySymbol[row.Symbol]++
		byRecord[row.RecordID]++
	}

	symbols := make([]types.SymbolCount, 0, len(bySymbol))
	for s, n := range bySymbol {
		symbols = append(symbols, types.SymbolCount{Symbol: s, Count: n})
	}
	slices.SortFunc(symbols, func(a, b types.SymbolCount) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})

	records := make([]types.RecordCount, 0, len(byRecord))
	for r, n := range byRecord {
		records = append(records, types.RecordCount{RecordID: r, Count: n})
	}
	slices.SortFunc(records, func(a, b types.RecordCount) int {
		return fetch.CompareIDs(a.RecordID, b.RecordID)
	})
	return symbols, records
}

// TopN returns the n entries with the highest counts, ascending by count
// so the largest bar is drawn last. Entries are ranked by count
// descending and then by key ascending; the first n are kept. Fewer than
// n entries are all returned. A non-positive n returns nil.
func TopN(counts []types.Count, n int) []types.Count {
	if n <= 0 || len(counts) == 0 {
		return nil
	}
	ranked := slices.Clone(counts)
	slices.SortStableFunc(ranked, func(a, b types.Count) int {
		if a.Value != b.Value {
			return b.Value - a.Value
		}
		return strings.Compare(a.Key, b.Key)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	slices.Reverse(ranked)
	return ranked
}

// TopKeys returns the keys of the n highest counts, highest first, using
// the ranking of TopN.
func TopKeys(counts []types.Count, n int) []string {
	top := TopN(counts, n)
	keys := make([]string, len(top))
	for i, c := range top {
		keys[len(top)-1-i] = c.Key
	}
	return keys
}
