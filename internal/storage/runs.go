package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

// MaxRecent caps how many runs Recent returns.
const MaxRecent = 500

// Record inserts a run.
func (s *Store) Record(ctx context.Context, run graph.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, query, status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Kind, run.Query, run.Status, run.Duration.Milliseconds(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]graph.Run, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, query, status, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []graph.Run{}
	for rows.Next() {
		var (
			run        graph.Run
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.Query, &run.Status, &durationMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
