// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/genelit/internal/fetch"
	"github.com/pdiddy/genelit/internal/secrets"
	"github.com/pdiddy/genelit/pkg/types"
)

const defaultTimeout = 60 * time.Second

// setDefaults registers every configuration key so that GENELIT_*
// environment variables reach Unmarshal even when no config file sets
// the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets_dir", secrets.DefaultDir)
	v.SetDefault("term", "")

	v.SetDefault("fetch.backend", string(types.FetchEUtils))
	v.SetDefault("fetch.base_url", "")
	v.SetDefault("fetch.database", "pubmed")
	v.SetDefault("fetch.page_size", 10000)
	v.SetDefault("fetch.api_key", "")
	v.SetDefault("fetch.email", "")
	v.SetDefault("fetch.tool", "genelit")
	v.SetDefault("fetch.requests_per_second", 0)
	v.SetDefault("fetch.timeout", defaultTimeout)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.max_retries", 0)

	v.SetDefault("mapping.path", "data/gene2pubmed.gz")
	v.SetDefault("mapping.delimiter", "tab")
	v.SetDefault("mapping.organism", "9606")
	v.SetDefault("mapping.organism_column", "tax_id")
	v.SetDefault("mapping.record_column", "PubMed_ID")
	v.SetDefault("mapping.entity_column", "GeneID")

	v.SetDefault("crossref.path", "data/gene_symbols.csv")
	v.SetDefault("crossref.delimiter", "comma")
	v.SetDefault("crossref.entity_column", "GeneID")
	v.SetDefault("crossref.symbol_column", "Symbol")

	v.SetDefault("enrichment.backend", string(types.EnrichGProfiler))
	v.SetDefault("enrichment.base_url", "")
	v.SetDefault("enrichment.organism", "") // follows mapping.organism
	v.SetDefault("enrichment.ontology", "BP")
	v.SetDefault("enrichment.key_type", "SYMBOL")
	v.SetDefault("enrichment.gmt_path", "")
	v.SetDefault("enrichment.pvalue_cutoff", 0.05)
	v.SetDefault("enrichment.show_category", 10)
	v.SetDefault("enrichment.timeout", defaultTimeout)
	v.SetDefault("enrichment.user_agent", "")
	v.SetDefault("enrichment.max_retries", 0)

	v.SetDefault("report.top_n", 9)
	v.SetDefault("report.enrich_top", 100)
	v.SetDefault("report.out_dir", "output")
	v.SetDefault("report.image_format", "png")
	v.SetDefault("report.format", string(types.SummaryYAML))
	v.SetDefault("report.db_path", "")
	v.SetDefault("report.max_unmapped", 0.5)
}

// bindFlags binds each viper key to the named flag. A flag the user did
// not set leaves the config file, environment, or default in charge.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// loadConfig assembles the pipeline configuration from viper and fills
// the NCBI credentials from the secrets directory.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if cfg.Fetch.Timeout <= 0 {
		cfg.Fetch.Timeout = defaultTimeout
	}
	if cfg.Enrichment.Timeout <= 0 {
		cfg.Enrichment.Timeout = cfg.Fetch.Timeout
	}
	ua := "genelit/" + version
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = ua
	}
	if cfg.Enrichment.UserAgent == "" {
		cfg.Enrichment.UserAgent = ua
	}

	if applied := secrets.Apply(loadedSecrets, &cfg.Fetch); len(applied) > 0 {
		fmt.Fprintf(os.Stderr, "Using secrets: %v\n", applied)
	}
	return cfg, nil
}

// newFetcher returns the search backend selected by cfg.Backend. Progress
// lines go to w.
func newFetcher(cfg types.FetchConfig, w io.Writer) (fetch.Fetcher, error) {
	switch cfg.Backend {
	case types.FetchEUtils, "":
		client := &http.Client{Timeout: cfg.Timeout}
		return fetch.NewEUtils(client, cfg, w), nil
	case types.FetchEntrez:
		return fetch.NewEntrez(cfg, w), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q: use eutils or entrez", cfg.Backend)
	}
}
