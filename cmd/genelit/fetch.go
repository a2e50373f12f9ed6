// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/genelit/internal/fetch"
	"github.com/pdiddy/genelit/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the PubMed identifiers matching a term",
	Long: `Fetch runs only the search stage: it asks E-utilities how many records
match --term, pages through all of them, and prints one PMID per line in
ascending order. Progress goes to stderr so the output can be piped.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Bool("json", false, "output the result as JSON")
	rootCmd.AddCommand(fetchCmd)
}

// fetchOutput is the JSON shape printed by fetch --json.
type fetchOutput struct {
	Term             string           `json:"term"`
	QueryTranslation string           `json:"query_translation,omitempty"`
	Total            int              `json:"total"`
	IDs              []types.RecordID `json:"ids"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Term == "" {
		return fmt.Errorf("provide a search term with --term")
	}

	f, err := newFetcher(cfg.Fetch, os.Stderr)
	if err != nil {
		return err
	}

	res, err := f.Fetch(cmd.Context(), cfg.Term)
	if errors.Is(err, fetch.ErrEmptyResult) {
		fmt.Fprintf(os.Stderr, "warning: %q matched no records\n", cfg.Term)
	} else if err != nil {
		return err
	}

	ids := res.IDs.Sorted()
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fetchOutput{
			Term:             cfg.Term,
			QueryTranslation: res.QueryTranslation,
			Total:            res.Total,
			IDs:              ids,
		})
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	fmt.Fprintf(os.Stderr, "%d identifiers (reported %d)\n", len(ids), res.Total)
	return nil
}
