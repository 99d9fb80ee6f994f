// Package statsstore persists Profiler opcode counters to a SQLite database
// for offline aggregation across runs. It is an optional sink: nothing in the evaluator
// core depends on it.
package statsstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/regvm/vm"
)

// Store wraps a SQLite database holding one row per (run, opcode).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path and ensures
// the opcode_stats table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statsstore: open: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS opcode_stats (
	run_id     TEXT NOT NULL,
	opcode     TEXT NOT NULL,
	count      INTEGER NOT NULL,
	total_nanos INTEGER NOT NULL,
	PRIMARY KEY (run_id, opcode)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statsstore: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRun persists one profiler snapshot under runID, replacing any prior
// rows for that run.
func (s *Store) RecordRun(runID string, stats []vm.OpcodeStat) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statsstore: begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM opcode_stats WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return fmt.Errorf("statsstore: clear run: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO opcode_stats (run_id, opcode, count, total_nanos) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("statsstore: prepare: %w", err)
	}
	defer stmt.Close()
	for _, s := range stats {
		if _, err := stmt.Exec(runID, s.Op.String(), s.Count, s.TotalNanos); err != nil {
			tx.Rollback()
			return fmt.Errorf("statsstore: insert: %w", err)
		}
	}
	return tx.Commit()
}

// TotalsByOpcode aggregates recorded counts across every run for opcode.
func (s *Store) TotalsByOpcode(opcode string) (count int64, totalNanos int64, err error) {
	row := s.db.QueryRow(`SELECT COALESCE(SUM(count),0), COALESCE(SUM(total_nanos),0) FROM opcode_stats WHERE opcode = ?`, opcode)
	if err := row.Scan(&count, &totalNanos); err != nil {
		return 0, 0, fmt.Errorf("statsstore: query: %w", err)
	}
	return count, totalNanos, nil
}
