// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists fetched citation lists in a SQLite database so a
// repeated or interrupted run skips DOIs that were already fetched.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/retraction-meta/pkg/types"
)

// Store is a DOI-keyed cache of OpenCitations responses.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS citations (
		doi        TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL,
		payload    TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached citation list for doi. The second return value is
// false on a miss. A row whose payload no longer parses is treated as a miss
// so the caller re-fetches it.
func (s *Store) Get(ctx context.Context, doi string) ([]types.CitationEntry, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM citations WHERE doi = ?`, doi,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache for %s: %w", doi, err)
	}

	var entries []types.CitationEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, false, nil
	}
	return entries, true, nil
}

// Put stores the citation list for doi, replacing any previous entry.
func (s *Store) Put(ctx context.Context, doi string, entries []types.CitationEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding citations for %s: %w", doi, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO citations (doi, fetched_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(doi) DO UPDATE SET fetched_at=excluded.fetched_at, payload=excluded.payload`,
		doi, time.Now().UTC().Format(time.RFC3339), string(payload),
	)
	if err != nil {
		return fmt.Errorf("storing citations for %s: %w", doi, err)
	}
	return nil
}

// Len returns the number of cached DOIs.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM citations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache rows: %w", err)
	}
	return n, nil
}
