// Package pipeline orchestrates the run lifecycle: primary search,
// aggregation, validation, cross-market checks, and persistence.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/adscout/internal/adlibrary"
	"github.com/jonathan/adscout/internal/crossmarket"
	"github.com/jonathan/adscout/internal/db"
	"github.com/jonathan/adscout/internal/validation"
)

// DefaultSearchLimit is the result cap for the primary keyword search.
const DefaultSearchLimit = 50

// maxProductLabelLen bounds the heuristic product label extracted from ad
// text.
const maxProductLabelLen = 50

// Store is the slice of the persistence layer the orchestrator needs.
// *db.DB satisfies it; tests substitute fakes.
type Store interface {
	CreateRun(ctx context.Context, country, language string, keywords []string) (uuid.UUID, error)
	UpdateRunStatus(ctx context.Context, runID uuid.UUID, status, summary string, finishedAt time.Time) error
	InsertCandidates(ctx context.Context, candidates []db.Candidate) error
}

// RunParams describes one run to process.
type RunParams struct {
	RunID    uuid.UUID
	Country  string
	Keywords []string
	Criteria validation.Criteria
}

// Orchestrator owns the run state machine. It is safe to process multiple
// runs concurrently; runs share no mutable state beyond the store.
type Orchestrator struct {
	store       Store
	src         adlibrary.Searcher
	scorer      *crossmarket.Scorer
	searchLimit int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSearchLimit overrides the primary search result cap.
func WithSearchLimit(limit int) Option {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.searchLimit = limit
		}
	}
}

// New creates an Orchestrator.
func New(store Store, src adlibrary.Searcher, scorer *crossmarket.Scorer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		src:         src,
		scorer:      scorer,
		searchLimit: DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateRun validates nothing beyond language support (callers validate
// input) and writes the initial in_progress record.
func (o *Orchestrator) CreateRun(ctx context.Context, country string, keywords []string) (uuid.UUID, error) {
	language := adlibrary.Language(country)
	if language == "" {
		return uuid.Nil, fmt.Errorf("unsupported country: %s", country)
	}
	return o.store.CreateRun(ctx, country, language, keywords)
}

// Process executes the full stage sequence for one run and always leaves
// the run in a terminal status (unless the final status write itself
// fails, which is logged and not escalated). The returned error mirrors
// the terminal state for supervisor bookkeeping.
func (o *Orchestrator) Process(ctx context.Context, p RunParams) error {
	log.Printf("[Run %s] Starting processing", p.RunID)

	candidates, advertiserCount, err := o.collectCandidates(ctx, p)
	if err != nil {
		o.fail(ctx, p.RunID, err)
		return err
	}

	if err := o.store.InsertCandidates(ctx, candidates); err != nil {
		o.fail(ctx, p.RunID, err)
		return err
	}
	log.Printf("[Run %s] Saved %d candidates", p.RunID, len(candidates))

	summary := fmt.Sprintf("Found %d advertisers, %d candidates saved", advertiserCount, len(candidates))
	if err := o.store.UpdateRunStatus(ctx, p.RunID, db.RunStatusCompleted, summary, time.Now().UTC()); err != nil {
		// The work is done; a failed status write leaves the run
		// visibly in_progress. Logged only.
		log.Printf("[Run %s] Error updating run status: %v", p.RunID, err)
	}

	log.Printf("[Run %s] Processing complete", p.RunID)
	return nil
}

// collectCandidates runs stages 1-3: primary search, aggregation,
// validation, and cross-market checks for approved candidates.
func (o *Orchestrator) collectCandidates(ctx context.Context, p RunParams) ([]db.Candidate, int, error) {
	log.Printf("[Run %s] Searching ad library for %d keywords in %s", p.RunID, len(p.Keywords), p.Country)
	ads, err := o.src.Search(ctx, p.Country, p.Keywords, o.searchLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("ad library search failed: %w", err)
	}

	advertisers := adlibrary.Aggregate(ads)
	log.Printf("[Run %s] Found %d advertisers", p.RunID, len(advertisers))

	keywordOrigin := ""
	if len(p.Keywords) > 0 {
		keywordOrigin = p.Keywords[0]
	}

	// Stable iteration keeps candidate construction deterministic for a
	// given search result.
	names := make([]string, 0, len(advertisers))
	for name := range advertisers {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make([]db.Candidate, 0, len(names))
	for _, name := range names {
		adv := advertisers[name]
		metrics := validation.Validate(adv, p.Criteria)

		status := db.CandidateStatusPending
		if metrics.Passed {
			status = db.CandidateStatusApprovedForAR
		}

		candidates = append(candidates, db.Candidate{
			RunID:            p.RunID,
			KeywordOrigin:    keywordOrigin,
			AdvertiserName:   name,
			PageURL:          adv.PageURL,
			ProductDetected:  productLabel(p.Keywords, adv),
			ActiveAdsCount:   metrics.ActiveAdsCount,
			UniproductRatio:  metrics.UniproductRatio,
			DuplicatesScore:  metrics.DuplicatesScore,
			TotalScore:       metrics.TotalScore,
			ValidationReason: strings.Join(metrics.Reasons, " | "),
			Status:           status,
		})
	}

	o.crossCheck(ctx, p.RunID, candidates)
	return candidates, len(advertisers), nil
}

// crossCheck attaches reference-market counts to approved candidates.
// Rejected and pending candidates keep a nil count and are never checked.
func (o *Orchestrator) crossCheck(ctx context.Context, runID uuid.UUID, candidates []db.Candidate) {
	var approved []int
	products := make([]string, 0)
	for i := range candidates {
		if candidates[i].Status == db.CandidateStatusApprovedForAR {
			approved = append(approved, i)
			products = append(products, candidates[i].ProductDetected)
		}
	}
	if len(approved) == 0 {
		return
	}

	log.Printf("[Run %s] Cross-checking %d approved candidates in %s", runID, len(approved), adlibrary.ReferenceCountry)
	results := o.scorer.ScoreAll(ctx, products)
	for j, i := range approved {
		res := results[j]
		if !res.Measured {
			log.Printf("[Run %s] Cross-check unmeasured for %q, recording 0", runID, candidates[i].ProductDetected)
		}
		count := res.AdsCount
		candidates[i].ArAdsCount = &count
	}
}

// fail drives the run to the error terminal state.
func (o *Orchestrator) fail(ctx context.Context, runID uuid.UUID, cause error) {
	log.Printf("[Run %s] Processing failed: %v", runID, cause)
	summary := fmt.Sprintf("Error: %s", cause.Error())
	if err := o.store.UpdateRunStatus(ctx, runID, db.RunStatusError, summary, time.Now().UTC()); err != nil {
		log.Printf("[Run %s] Error updating run status: %v", runID, err)
	}
}

// productLabel picks the detected product for a candidate: the run's
// first keyword verbatim when present, else the first five words of the
// advertiser's first ad text truncated to 50 characters.
func productLabel(keywords []string, adv *adlibrary.Advertiser) string {
	if len(keywords) > 0 && keywords[0] != "" {
		return keywords[0]
	}

	if len(adv.Ads) == 0 || adv.Ads[0].AdText == "" {
		return "Unknown Product"
	}

	words := strings.Fields(adv.Ads[0].AdText)
	if len(words) > 5 {
		words = words[:5]
	}
	label := strings.Join(words, " ")
	if runes := []rune(label); len(runes) > maxProductLabelLen {
		label = string(runes[:maxProductLabelLen])
	}
	return label
}
