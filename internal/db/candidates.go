package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertCandidates persists all candidates for a run in a single batch.
func (db *DB) InsertCandidates(ctx context.Context, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range candidates {
		batch.Queue(
			`INSERT INTO external_candidates
			   (run_id, keyword_origin, advertiser_name, ad_library_page_url,
			    product_detected, active_ads_count, uniproduct_ratio,
			    duplicates_score, total_score, validation_reasons, status,
			    ar_ads_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.RunID, c.KeywordOrigin, c.AdvertiserName, c.PageURL,
			c.ProductDetected, c.ActiveAdsCount, c.UniproductRatio,
			c.DuplicatesScore, c.TotalScore, c.ValidationReason, c.Status,
			c.ArAdsCount,
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert candidates: %w", err)
		}
	}
	return nil
}

// ListCandidates retrieves all candidates for a run ordered by composite
// score descending, optionally filtered by status.
func (db *DB) ListCandidates(ctx context.Context, runID uuid.UUID, status string) ([]Candidate, error) {
	query := `SELECT id, run_id, keyword_origin, advertiser_name,
	                 COALESCE(ad_library_page_url, ''), product_detected,
	                 active_ads_count, uniproduct_ratio, duplicates_score,
	                 total_score, COALESCE(validation_reasons, ''), status,
	                 ar_ads_count, created_at
	          FROM external_candidates WHERE run_id = $1`
	args := []any{runID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY total_score DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.RunID, &c.KeywordOrigin, &c.AdvertiserName,
			&c.PageURL, &c.ProductDetected, &c.ActiveAdsCount, &c.UniproductRatio,
			&c.DuplicatesScore, &c.TotalScore, &c.ValidationReason, &c.Status,
			&c.ArAdsCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// CountCandidates returns the number of candidates persisted for a run.
func (db *DB) CountCandidates(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM external_candidates WHERE run_id = $1`,
		runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return count, nil
}
