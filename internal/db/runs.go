package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRun creates a new run record in in_progress state and returns its ID.
func (db *DB) CreateRun(ctx context.Context, country, language string, keywords []string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO runs (target_country, language, keywords_input, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		country, language, keywords, RunStatusInProgress,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// UpdateRunStatus moves a run to a terminal status with a summary and
// finish timestamp. Re-writing the same terminal status is idempotent.
func (db *DB) UpdateRunStatus(ctx context.Context, runID uuid.UUID, status, summary string, finishedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary_logs = $2, finished_at = $3 WHERE id = $4`,
		status, summary, finishedAt, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns (nil, nil) when no run exists.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, target_country, language, keywords_input, status,
		        COALESCE(summary_logs, ''), created_at, finished_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.TargetCountry, &run.Language, &run.Keywords,
		&run.Status, &run.Summary, &run.CreatedAt, &run.FinishedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, target_country, language, keywords_input, status,
		        COALESCE(summary_logs, ''), created_at, finished_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.TargetCountry, &run.Language, &run.Keywords,
			&run.Status, &run.Summary, &run.CreatedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
