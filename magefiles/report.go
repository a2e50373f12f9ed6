//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Report builds the CLI and runs the full pipeline for $GENELIT_TERM,
// writing charts and the summary to output/.
func Report() error {
	mg.Deps(Init, Build)
	term := os.Getenv("GENELIT_TERM")
	if term == "" {
		return fmt.Errorf("set GENELIT_TERM to the PubMed search term")
	}
	return sh.RunV(filepath.Join(binDir, binName), "run", "--term", term, "--db", filepath.Join("output", "genelit.db"))
}

// Runs lists the runs recorded by Report.
func Runs() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "runs", "--db", filepath.Join("output", "genelit.db"))
}
