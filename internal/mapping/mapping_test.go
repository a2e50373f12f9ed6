// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genelit/pkg/types"
)

const gene2pubmed = "#tax_id\tGeneID\tPubMed_ID\n" +
	"9606\t1\t100\n" +
	"9606\t1\t101\n" +
	"10090\t11287\t100\n" +
	"9606\t2\t00102\n" +
	"9606\t\t103\n"

const geneSymbols = "GeneID,Symbol,Name\n" +
	"1,A1BG,alpha-1-B glycoprotein\n" +
	"2.0,A2M,alpha-2-macroglobulin\n" +
	"3,-,withdrawn\n" +
	"0009,A2MP1,pseudogene\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mappingCfg(path string) types.MappingConfig {
	return types.MappingConfig{TableConfig: types.TableConfig{Path: path}}
}

func crossRefCfg(path string) types.CrossRefConfig {
	return types.CrossRefConfig{TableConfig: types.TableConfig{Path: path}}
}

func TestLoadMappingFiltersOrganism(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gene2pubmed", gene2pubmed)

	rows, err := LoadMapping(mappingCfg(path))
	require.NoError(t, err)

	assert.Equal(t, []types.MappingRow{
		{TaxID: "9606", RecordID: "100", EntityID: "1"},
		{TaxID: "9606", RecordID: "101", EntityID: "1"},
		{TaxID: "9606", RecordID: "102", EntityID: "2"},
	}, rows)
}

func TestLoadMappingOtherOrganism(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gene2pubmed", gene2pubmed)

	cfg := mappingCfg(path)
	cfg.Organism = "10090"
	rows, err := LoadMapping(cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "11287", rows[0].EntityID)
}

func TestLoadMappingGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gene2pubmed.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(gene2pubmed))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	rows, err := LoadMapping(mappingCfg(path))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoadMappingCustomColumnsAndDelimiter(t *testing.T) {
	content := "pmid;gene;species\n200;7157;9606\n"
	path := writeFile(t, t.TempDir(), "custom.csv", content)

	cfg := types.MappingConfig{
		TableConfig:    types.TableConfig{Path: path, Delimiter: "semicolon"},
		OrganismColumn: "Species",
		RecordColumn:   "PMID",
		EntityColumn:   "gene",
	}
	rows, err := LoadMapping(cfg)
	require.NoError(t, err)
	assert.Equal(t, []types.MappingRow{{TaxID: "9606", RecordID: "200", EntityID: "7157"}}, rows)
}

func TestLoadCrossRefNormalizesKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "symbols.csv", geneSymbols)

	rows, err := LoadCrossRef(crossRefCfg(path))
	require.NoError(t, err)

	assert.Equal(t, []types.CrossRefRow{
		{EntityID: "1", Symbol: "A1BG"},
		{EntityID: "2", Symbol: "A2M"},
		{EntityID: "9", Symbol: "A2MP1"},
	}, rows)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	missingCol := writeFile(t, dir, "nocol.tsv", "#tax_id\tGeneID\n9606\t1\n")
	empty := writeFile(t, dir, "empty.tsv", "")
	ragged := writeFile(t, dir, "ragged.tsv", "#tax_id\tGeneID\tPubMed_ID\n9606\t1\n")
	notGzip := writeFile(t, dir, "plain.gz", "not gzip")

	tests := []struct {
		name   string
		cfg    types.MappingConfig
		errMsg string
	}{
		{"no path", mappingCfg(""), "no path configured"},
		{"file not found", mappingCfg(filepath.Join(dir, "nope.tsv")), "no such file"},
		{"missing column", mappingCfg(missingCol), "missing column(s) PubMed_ID"},
		{"empty file", mappingCfg(empty), "missing header row"},
		{"ragged row", mappingCfg(ragged), "wrong number of fields"},
		{"bad gzip", mappingCfg(notGzip), "gzip"},
		{"bad delimiter", types.MappingConfig{TableConfig: types.TableConfig{Path: missingCol, Delimiter: "::"}}, "invalid delimiter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := LoadMapping(tt.cfg)
			assert.Nil(t, rows)
			assert.ErrorIs(t, err, ErrFileLoad)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"tab", '\t'},
		{"TAB", '\t'},
		{`\t`, '\t'},
		{"\t", '\t'},
		{"comma", ','},
		{",", ','},
		{"|", '|'},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestHeaderKey(t *testing.T) {
	assert.Equal(t, "tax_id", headerKey("#tax_id"))
	assert.Equal(t, "tax_id", headerKey("\ufeff#Tax_ID "))
	assert.Equal(t, "geneid", headerKey("GeneID"))
}
