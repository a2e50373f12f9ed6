// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey maps the textual forms of one identifier to a single
// string: NFKC normalization, surrounding whitespace trimmed, integral
// decimals ("1.0") reduced to integers, and leading zeros stripped from
// all-digit keys. Keys from different tables must pass through it before
// they are compared.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if i := strings.IndexByte(s, '.'); i > 0 && allDigits(s[:i]) && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if len(s) > 1 && allDigits(s) {
		s = strings.TrimLeft(s, "0")
		if s == "" {
			s = "0"
		}
	}
	return s
}

// NewRecordID returns the normalized RecordID for s.
func NewRecordID(s string) RecordID {
	return RecordID(NormalizeKey(s))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
