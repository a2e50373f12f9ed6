// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the genelit CLI. genelit searches
// PubMed for a term, counts the genes mentioned in the matching articles,
// and reports the most frequent genes with their enriched annotations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/genelit/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the genelit CLI.
var rootCmd = &cobra.Command{
	Use:   "genelit",
	Short: "Rank the genes mentioned in the literature matching a search term",
	Long: `genelit queries PubMed through NCBI E-utilities for the articles matching a
search term, joins the article identifiers against a gene2pubmed mapping and a
gene symbol table, and counts gene mentions per gene and per article.

The run subcommand draws the top genes and top articles as bar charts, runs a
GO enrichment over the top genes, and writes a dot plot and a run summary.
The fetch and top subcommands stop after the search and the counts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./genelit.yaml or ~/.config/genelit/genelit.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential files (ncbi-api-key, ncbi-email)")
	pf.String("term", "", "PubMed search term")
	pf.String("mapping", "", "article-to-gene table (gene2pubmed layout, .gz accepted)")
	pf.String("crossref", "", "gene id to symbol table")
	pf.String("organism", "", "NCBI taxonomy id kept from the mapping table (default 9606)")
	pf.String("backend", "", "search backend: eutils or entrez (default eutils)")
	pf.Duration("timeout", 0, "HTTP request timeout (default 60s)")
	pf.Int("top", 0, "entries per frequency chart or table (default 9)")
	pf.Float64("max-unmapped", 0, "largest tolerated fraction of unmapped mapping rows (default 0.5, 1 disables)")

	bindFlags(pf, map[string]string{
		"secrets_dir":         "secrets-dir",
		"term":                "term",
		"mapping.path":        "mapping",
		"crossref.path":       "crossref",
		"mapping.organism":    "organism",
		"fetch.backend":       "backend",
		"fetch.timeout":       "timeout",
		"report.top_n":        "top",
		"report.max_unmapped": "max-unmapped",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("genelit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "genelit"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("GENELIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
