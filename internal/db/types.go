package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status constants
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusError      = "error"
)

// Candidate status constants
const (
	CandidateStatusPending       = "pending"
	CandidateStatusApprovedForAR = "approved_for_ar"
	CandidateStatusRejected      = "rejected"
)

// Replication level constants, derived from the reference-market ad count.
const (
	ReplicationNone  = "not_replicated"
	ReplicationSome  = "replicated"
	ReplicationHeavy = "highly_replicated"
)

// Run represents one research run over a target market.
type Run struct {
	ID            uuid.UUID  `json:"id"`
	TargetCountry string     `json:"target_country"`
	Language      string     `json:"language"`
	Keywords      []string   `json:"keywords"`
	Status        string     `json:"status"`
	Summary       string     `json:"summary,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Candidate represents one validated advertiser found by a run.
// ArAdsCount is non-nil exactly when Status is approved_for_ar; for all
// other statuses the reference market is never queried.
type Candidate struct {
	ID               uuid.UUID `json:"id"`
	RunID            uuid.UUID `json:"run_id"`
	KeywordOrigin    string    `json:"keyword_origin"`
	AdvertiserName   string    `json:"advertiser_name"`
	PageURL          string    `json:"ad_library_page_url,omitempty"`
	ProductDetected  string    `json:"product_detected"`
	ActiveAdsCount   int       `json:"active_ads_count"`
	UniproductRatio  float64   `json:"uniproduct_ratio"`
	DuplicatesScore  float64   `json:"duplicates_score"`
	TotalScore       int       `json:"total_score"`
	ValidationReason string    `json:"validation_reasons"`
	Status           string    `json:"status"`
	ArAdsCount       *int      `json:"ar_ads_count,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReplicationLevel classifies a reference-market ad count into a coarse
// saturation bucket for display.
func ReplicationLevel(arAdsCount int) string {
	switch {
	case arAdsCount >= 20:
		return ReplicationHeavy
	case arAdsCount >= 5:
		return ReplicationSome
	default:
		return ReplicationNone
	}
}
