// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EnrichedTerm is one annotation term reported by an enrichment backend.
type EnrichedTerm struct {
	// ID is the term accession (e.g. "GO:0006915").
	ID string `json:"id" yaml:"id"`

	// Description is the human-readable term name.
	Description string `json:"description" yaml:"description"`

	// Category is the ontology branch or source (e.g. "GO:BP").
	Category string `json:"category" yaml:"category"`

	// PValue is the raw significance of the over-representation test.
	PValue float64 `json:"p_value" yaml:"p_value"`

	// AdjustedPValue is PValue after multiple-testing correction.
	AdjustedPValue float64 `json:"p_adjust" yaml:"p_adjust"`

	// GeneRatio is Count divided by the number of query genes that carry
	// any annotation.
	GeneRatio float64 `json:"gene_ratio" yaml:"gene_ratio"`

	// Count is the number of query genes annotated with the term.
	Count int `json:"count" yaml:"count"`

	// TermSize is the number of background genes annotated with the term.
	TermSize int `json:"term_size" yaml:"term_size"`

	// Genes lists the query genes annotated with the term, when the
	// backend reports them.
	Genes []string `json:"genes,omitempty" yaml:"genes,omitempty"`
}
