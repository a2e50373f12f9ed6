// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapping loads the reference tables the pipeline joins: the
// article-to-gene mapping (gene2pubmed layout) and the gene identifier
// to symbol cross-reference. Both are delimited text with a header row.
// Identifier columns are normalized with types.NormalizeKey at load so
// the two tables share one key representation.
package mapping

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/genelit/pkg/types"
)

// ErrFileLoad wraps every failure to read a reference table.
var ErrFileLoad = errors.New("loading reference table")

const (
	DefaultOrganism       = "9606"
	DefaultOrganismColumn = "tax_id"
	DefaultRecordColumn   = "PubMed_ID"
	DefaultEntityColumn   = "GeneID"
	DefaultSymbolColumn   = "Symbol"
)

// LoadMapping reads the article-to-gene table and keeps the rows whose
// organism column equals cfg.Organism. Rows with an empty record or
// entity identifier are skipped.
func LoadMapping(cfg types.MappingConfig) ([]types.MappingRow, error) {
	organism := types.NormalizeKey(withDefault(cfg.Organism, DefaultOrganism))
	cols := []string{
		withDefault(cfg.OrganismColumn, DefaultOrganismColumn),
		withDefault(cfg.RecordColumn, DefaultRecordColumn),
		withDefault(cfg.EntityColumn, DefaultEntityColumn),
	}
	delim := cfg.Delimiter
	if delim == "" {
		delim = "tab"
	}

	var rows []types.MappingRow
	err := readTable(cfg.Path, delim, cols, func(fields []string) {
		tax := types.NormalizeKey(fields[0])
		if tax != organism {
			return
		}
		rec := types.NewRecordID(fields[1])
		ent := types.NormalizeKey(fields[2])
		if rec == "" || ent == "" {
			return
		}
		rows = append(rows, types.MappingRow{TaxID: tax, RecordID: rec, EntityID: ent})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadCrossRef reads the identifier-to-symbol table. Rows with an empty
// identifier or symbol are skipped.
func LoadCrossRef(cfg types.CrossRefConfig) ([]types.CrossRefRow, error) {
	cols := []string{
		withDefault(cfg.EntityColumn, DefaultEntityColumn),
		withDefault(cfg.SymbolColumn, DefaultSymbolColumn),
	}
	delim := cfg.Delimiter
	if delim == "" {
		delim = "comma"
	}

	var rows []types.CrossRefRow
	err := readTable(cfg.Path, delim, cols, func(fields []string) {
		ent := types.NormalizeKey(fields[0])
		sym := strings.TrimSpace(fields[1])
		if ent == "" || sym == "" || sym == "-" {
			return
		}
		rows = append(rows, types.CrossRefRow{EntityID: ent, Symbol: sym})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ParseDelimiter accepts a single character or one of the names "tab",
// "comma", "semicolon", "pipe", and the escape "\t".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: use a single character or tab, comma, semicolon, pipe", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// readTable opens path, locates the wanted columns in the header, and
// calls row with the wanted fields of each data row, in the order given.
func readTable(path, delim string, wanted []string, row func(fields []string)) error {
	if path == "" {
		return fmt.Errorf("%w: no path configured", ErrFileLoad)
	}
	comma, err := ParseDelimiter(delim)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileLoad, path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileLoad, err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFileLoad, path, err)
		}
		defer gz.Close()
		src = gz
	}

	r := csv.NewReader(src)
	r.Comma = comma
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s: missing header row", ErrFileLoad, path)
		}
		return fmt.Errorf("%w: %s: reading header: %w", ErrFileLoad, path, err)
	}
	idx, err := columnIndexes(header, wanted)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileLoad, path, err)
	}

	fields := make([]string, len(wanted))
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFileLoad, path, err)
		}
		for i, j := range idx {
			fields[i] = rec[j]
		}
		row(fields)
	}
}

// columnIndexes finds each wanted column in header. Names match case
// insensitively and ignore a leading '#' and a UTF-8 byte order mark.
func columnIndexes(header, wanted []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	idx := make([]int, len(wanted))
	var missing []string
	for i, w := range wanted {
		j, ok := pos[headerKey(w)]
		if !ok {
			missing = append(missing, w)
			continue
		}
		idx[i] = j
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s) %s in header %q", strings.Join(missing, ", "), header)
	}
	return idx, nil
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "#")
	return strings.ToLower(strings.TrimSpace(h))
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
