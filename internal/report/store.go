// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/genelit/pkg/types"
)

// Store is the SQLite report database. Each Save adds one run; earlier
// runs are never read back by the pipeline.
type Store struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Term          string
	Organism      string
	ReportedTotal int
	Fetched       int
	Joined        int
}

// NewStore opens or creates the report database at path and creates the
// schema if it does not exist.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			term TEXT NOT NULL,
			query_translation TEXT,
			organism TEXT,
			fetch_backend TEXT,
			enrich_backend TEXT,
			reported_total INTEGER,
			fetched INTEGER,
			mapping_rows INTEGER,
			unmapped INTEGER,
			joined INTEGER,
			warnings TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS symbol_counts (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS record_counts (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			record_id TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, record_id)
		)`,
		`CREATE TABLE IF NOT EXISTS enriched_terms (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			term_id TEXT NOT NULL,
			description TEXT,
			category TEXT,
			p_value REAL,
			p_adjust REAL,
			gene_ratio REAL,
			count INTEGER,
			term_size INTEGER,
			genes TEXT,
			PRIMARY KEY (run_id, term_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_term ON runs(term)`,
		`CREATE INDEX IF NOT EXISTS idx_symbol_counts_symbol ON symbol_counts(symbol)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save records a run with its full count tables in one transaction.
func (s *Store) Save(ctx context.Context, sum *Summary, symbols []types.SymbolCount, records []types.RecordCount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	warningsJSON, _ := json.Marshal(sum.Warnings)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, term, query_translation, organism, fetch_backend,
			enrich_backend, reported_total, fetched, mapping_rows, unmapped, joined, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.CreatedAt.UTC().Format(time.RFC3339Nano), sum.Term, sum.QueryTranslation,
		sum.Organism, sum.FetchBackend, sum.EnrichBackend, sum.ReportedTotal, sum.Fetched,
		sum.Join.MappingRows, sum.Join.Unmapped, sum.Join.Joined, string(warningsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", sum.RunID, err)
	}

	symStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO symbol_counts (run_id, symbol, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing symbol insert: %w", err)
	}
	defer symStmt.Close()
	for _, c := range symbols {
		if _, err := symStmt.ExecContext(ctx, sum.RunID, c.Symbol, c.Count); err != nil {
			return fmt.Errorf("inserting symbol %s: %w", c.Symbol, err)
		}
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO record_counts (run_id, record_id, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer recStmt.Close()
	for _, c := range records {
		if _, err := recStmt.ExecContext(ctx, sum.RunID, string(c.RecordID), c.Count); err != nil {
			return fmt.Errorf("inserting record %s: %w", c.RecordID, err)
		}
	}

	termStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO enriched_terms (run_id, term_id, description, category,
			p_value, p_adjust, gene_ratio, count, term_size, genes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing term insert: %w", err)
	}
	defer termStmt.Close()
	for _, t := range sum.Enrichment {
		genesJSON, _ := json.Marshal(t.Genes)
		_, err := termStmt.ExecContext(ctx, sum.RunID, t.ID, t.Description, t.Category,
			t.PValue, t.AdjustedPValue, t.GeneRatio, t.Count, t.TermSize, string(genesJSON))
		if err != nil {
			return fmt.Errorf("inserting term %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, term, organism, reported_total, fetched, joined
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &created, &r.Term, &r.Organism, &r.ReportedTotal, &r.Fetched, &r.Joined); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TopSymbols returns the n most frequent symbols of a run, highest first.
// Ties order by symbol.
func (s *Store) TopSymbols(ctx context.Context, runID string, n int) ([]types.SymbolCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, count FROM symbol_counts WHERE run_id = ?
		 ORDER BY count DESC, symbol LIMIT ?`, runID, n)
	if err != nil {
		return nil, fmt.Errorf("querying symbol counts: %w", err)
	}
	defer rows.Close()

	var out []types.SymbolCount
	for rows.Next() {
		var c types.SymbolCount
		if err := rows.Scan(&c.Symbol, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning symbol count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
