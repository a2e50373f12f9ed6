// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the genelit pipeline.
// Records flow left to right: MappingRow and CrossRefRow are loaded from
// reference tables, joined into JoinedRow, filtered by the RecordIDs the
// search returned, and aggregated into SymbolCount and RecordCount.
package types

// RecordID identifies one literature record (a PubMed PMID). Values are
// normalized at load time so that equal identifiers compare equal as
// strings.
type RecordID string

// MappingRow is one row of the article-to-gene table.
type MappingRow struct {
	// TaxID is the organism code of the row (e.g. "9606" for human).
	TaxID string `json:"tax_id" yaml:"tax_id"`

	// RecordID is the literature record the entity is mentioned in.
	RecordID RecordID `json:"record_id" yaml:"record_id"`

	// EntityID is the internal gene identifier (NCBI GeneID).
	EntityID string `json:"entity_id" yaml:"entity_id"`
}

// CrossRefRow translates an internal entity identifier to its symbol.
type CrossRefRow struct {
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Symbol   string `json:"symbol" yaml:"symbol"`
}

// JoinedRow pairs a record with a gene symbol mentioned in it. Symbol is
// never empty and (RecordID, Symbol) pairs are unique within a join result.
type JoinedRow struct {
	RecordID RecordID `json:"record_id" yaml:"record_id"`
	Symbol   string   `json:"symbol" yaml:"symbol"`
}

// SymbolCount is the number of filtered rows mentioning a symbol.
type SymbolCount struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Count  int    `json:"count" yaml:"count"`
}

// RecordCount is the number of filtered rows belonging to a record.
type RecordCount struct {
	RecordID RecordID `json:"record_id" yaml:"record_id"`
	Count    int      `json:"count" yaml:"count"`
}

// Count is a generic (key, count) pair used for ranking and rendering.
type Count struct {
	Key   string `json:"key" yaml:"key"`
	Value int    `json:"count" yaml:"count"`
}

// SymbolCounts converts symbol counts to generic counts.
func SymbolCounts(in []SymbolCount) []Count {
	out := make([]Count, len(in))
	for i, c := range in {
		out[i] = Count{Key: c.Symbol, Value: c.Count}
	}
	return out
}

// RecordCounts converts record counts to generic counts.
func RecordCounts(in []RecordCount) []Count {
	out := make([]Count, len(in))
	for i, c := range in {
		out[i] = Count{Key: string(c.RecordID), Value: c.Count}
	}
	return out
}
