// Package profile persists an opcode execution histogram to a local SQLite
// database, keyed by run ID, for the `--profile-db` flag.
package profile

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"ratsnake/internal/bytecode"
)

// Store wraps a single SQLite database holding opcode counts across runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("profile: opening %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS opcode_counts (
		run_id TEXT NOT NULL,
		opcode TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, opcode)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("profile: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts the opcode histogram for one run.
func (s *Store) Record(runID string, counts map[bytecode.OpCode]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("profile: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO opcode_counts (run_id, opcode, count) VALUES (?, ?, ?)
		ON CONFLICT(run_id, opcode) DO UPDATE SET count = excluded.count`
	for op, count := range counts {
		if _, err := tx.Exec(upsert, runID, op.String(), count); err != nil {
			return fmt.Errorf("profile: recording %s: %w", op, err)
		}
	}
	return tx.Commit()
}

// Histogram is one row of a stored opcode count.
type Histogram struct {
	Opcode string
	Count  int
}

// Load returns every opcode count recorded for runID, most frequent first.
func (s *Store) Load(runID string) ([]Histogram, error) {
	rows, err := s.db.Query(
		`SELECT opcode, count FROM opcode_counts WHERE run_id = ? ORDER BY count DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("profile: querying %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Histogram
	for rows.Next() {
		var h Histogram
		if err := rows.Scan(&h.Opcode, &h.Count); err != nil {
			return nil, fmt.Errorf("profile: scanning row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Aggregate sums opcode counts across every recorded run, most frequent
// first, for the disassembler's --profile-db overlay.
func (s *Store) Aggregate() ([]Histogram, error) {
	rows, err := s.db.Query(
		`SELECT opcode, SUM(count) FROM opcode_counts GROUP BY opcode ORDER BY SUM(count) DESC`)
	if err != nil {
		return nil, fmt.Errorf("profile: aggregating: %w", err)
	}
	defer rows.Close()

	var out []Histogram
	for rows.Next() {
		var h Histogram
		if err := rows.Scan(&h.Opcode, &h.Count); err != nil {
			return nil, fmt.Errorf("profile: scanning row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
