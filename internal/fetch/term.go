// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTerm applies NFKC normalization, trims the term, and collapses
// internal whitespace to single spaces.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(term)), " ")
}

// EncodeTerm prepares a term for the E-utilities query string. Spaces
// become "+"; '"', '\'', '-' and '/' become %22, %27, %2D and %2F; all
// other reserved characters are percent-encoded.
func EncodeTerm(term string) (string, error) {
	t := NormalizeTerm(term)
	if t == "" {
		return "", ErrEmptyTerm
	}
	// QueryEscape leaves '-' unescaped.
	return strings.ReplaceAll(url.QueryEscape(t), "-", "%2D"), nil
}
