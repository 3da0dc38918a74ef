// Copyright Caddis Lab, 2026. All rights reserved.

// Package cache persists provider lookups in a SQLite database so that
// repeated enrichment runs never refetch what an earlier run already
// resolved, including confirmed not-founds.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the lookup cache SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lookups (
			source TEXT NOT NULL,
			doi TEXT NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			not_found INTEGER NOT NULL DEFAULT 0,
			fetched_at TEXT NOT NULL,
			PRIMARY KEY (source, doi, field)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_doi ON lookups(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the cached lookup for (source, doi, field). ok reports
// whether an entry exists at all; notFound reports a cached miss.
func (s *Store) Get(source, doi, field string) (value string, notFound bool, ok bool) {
	var nf int
	err := s.db.QueryRow(
		`SELECT value, not_found FROM lookups WHERE source = ? AND doi = ? AND field = ?`,
		source, doi, field,
	).Scan(&value, &nf)
	if err != nil {
		return "", false, false
	}
	return value, nf != 0, true
}

// Put stores a lookup outcome, replacing any previous entry for the key.
func (s *Store) Put(source, doi, field, value string, notFound bool) error {
	nf := 0
	if notFound {
		nf = 1
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO lookups (source, doi, field, value, not_found, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		source, doi, field, value, nf, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing lookup: %w", err)
	}
	return nil
}

// Purge deletes cached not-founds older than the cutoff, so providers
// that later index a paper get another chance.
func (s *Store) Purge(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM lookups WHERE not_found = 1 AND fetched_at < ?`,
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns entry counts per source.
func (s *Store) Stats() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT source, COUNT(*) FROM lookups GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("querying cache stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scanning cache stats: %w", err)
		}
		stats[source] = n
	}
	return stats, rows.Err()
}
