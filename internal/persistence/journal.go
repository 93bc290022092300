package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/questloop/internal/scheduler"
)

// RecordAttempt appends one task execution to the journal under the store's
// run ID.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, attempt scheduler.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (run_id, task, attempt, wanderer, completed, soft_limit, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.runID, attempt.Task, attempt.Number, attempt.Wanderer,
		boolToInt(attempt.Completed), boolToInt(attempt.SoftLimit), attempt.Err,
		attempt.Duration.Milliseconds(), attempt.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to record attempt %d of %s: %w", attempt.Number, attempt.Task, err)
	}
	return nil
}

// ListAttempts returns every attempt recorded for a run, oldest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, runID string) ([]scheduler.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, attempt, wanderer, completed, soft_limit, error, duration_ms, started_at
		FROM attempts
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []scheduler.Attempt
	for rows.Next() {
		var (
			a          scheduler.Attempt
			completed  int
			softLimit  int
			durationMS int64
		)
		if err := rows.Scan(&a.Task, &a.Number, &a.Wanderer, &completed, &softLimit, &a.Err, &durationMS, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Completed = completed != 0
		a.SoftLimit = softLimit != 0
		a.Duration = time.Duration(durationMS) * time.Millisecond
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
