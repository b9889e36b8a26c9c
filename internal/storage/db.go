// Package storage persists generate and ask runs in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store is the run history backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the database at url and creates the schema.
func Open(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := NewStore(db)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTables creates the runs table if it does not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
