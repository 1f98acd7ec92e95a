package protoxchg

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/clonoweave/clonoweave/internal/join"
)

// DiagnosticSink accepts a batch of Join Engine diagnostics. Store is
// its only implementation; the interface exists so callers (and tests)
// can substitute a fake sink without pulling in DuckDB.
type DiagnosticSink interface {
	WritePotentialJoins(pots []join.PotentialJoin) error
}

// Store is a DuckDB-backed diagnostic sink for the Join Engine's
// rejected and accepted PotentialJoin records, adapted from the
// teacher's duckdb.Store: a single embedded database file that a run
// can be pointed at for offline inspection of join decisions.
type Store struct {
	db *sql.DB
}

var _ DiagnosticSink = (*Store)(nil)

// Open creates (or reuses) the DuckDB file at path and ensures the
// diagnostic schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating duckdb directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb store at %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS potential_joins (
			k1 INTEGER,
			k2 INTEGER,
			nrefs INTEGER,
			cdr3_diffs INTEGER,
			total_diffs INTEGER,
			score DOUBLE,
			p1 DOUBLE,
			mult DOUBLE,
			err BOOLEAN
		)
	`)
	if err != nil {
		return fmt.Errorf("creating potential_joins table: %w", err)
	}
	return nil
}

// WritePotentialJoins persists a batch of PotentialJoin diagnostics
// inside a single transaction.
func (s *Store) WritePotentialJoins(pots []join.PotentialJoin) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO potential_joins
			(k1, k2, nrefs, cdr3_diffs, total_diffs, score, p1, mult, err)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pots {
		if _, err := stmt.Exec(p.K1, p.K2, p.NRefs, p.CD, p.Diffs, p.Score, p.P1, p.Mult, p.Err); err != nil {
			return fmt.Errorf("inserting potential join (%d,%d): %w", p.K1, p.K2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
