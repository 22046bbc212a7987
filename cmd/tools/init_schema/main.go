// Command init_schema creates the runs and external_candidates tables.
//
// Usage:
//
//	go run cmd/tools/init_schema/main.go
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS runs (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	target_country TEXT NOT NULL,
	language TEXT NOT NULL,
	keywords_input TEXT[] NOT NULL,
	status TEXT NOT NULL DEFAULT 'in_progress',
	summary_logs TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS external_candidates (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	keyword_origin TEXT NOT NULL,
	advertiser_name TEXT NOT NULL,
	ad_library_page_url TEXT,
	product_detected TEXT NOT NULL DEFAULT '',
	active_ads_count INTEGER NOT NULL DEFAULT 0,
	uniproduct_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
	duplicates_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_score INTEGER NOT NULL DEFAULT 0,
	validation_reasons TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	ar_ads_count INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_run_id ON external_candidates(run_id);
CREATE INDEX IF NOT EXISTS idx_candidates_score ON external_candidates(run_id, total_score DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("=== Schema Initialization ===")
	fmt.Println()

	if _, err := pool.Exec(ctx, schema); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Created tables: runs, external_candidates")
	fmt.Println("Done.")
}
