// Package crossmarket estimates competitive saturation for an approved
// candidate by re-querying a fixed reference market for its product.
package crossmarket

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/adscout/internal/adlibrary"
)

// DefaultLimit is the result cap for a reference-market query. Larger
// than the primary search cap to get a more reliable saturation estimate.
const DefaultLimit = 100

// Result is the outcome of one reference-market check. Measured is false
// when the query failed; AdsCount stays zero in that case, which is
// indistinguishable from a genuinely empty market downstream but lets
// callers surface the difference.
type Result struct {
	AdsCount int
	Measured bool
}

// Scorer counts competing inventory in the reference market.
type Scorer struct {
	src     adlibrary.Searcher
	country string
	limit   int
	workers int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithCountry overrides the reference market.
func WithCountry(country string) Option {
	return func(s *Scorer) { s.country = country }
}

// WithLimit overrides the per-query result cap.
func WithLimit(limit int) Option {
	return func(s *Scorer) { s.limit = limit }
}

// WithWorkers sets the number of concurrent reference-market queries.
// The default of 1 keeps checks strictly sequential so the rate-limited
// inventory source is never hit in bursts.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Scorer against the fixed reference market.
func New(src adlibrary.Searcher, opts ...Option) *Scorer {
	s := &Scorer{
		src:     src,
		country: adlibrary.ReferenceCountry,
		limit:   DefaultLimit,
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score queries the reference market for a single product label and sums
// active-ad counts across every advertiser returned. The intent is total
// competitive volume, not advertiser-level matching. A failed query never
// propagates: it degrades to a zero, unmeasured result.
func (s *Scorer) Score(ctx context.Context, product string) Result {
	ads, err := s.src.Search(ctx, s.country, []string{product}, s.limit)
	if err != nil {
		log.Printf("[CrossMarket] Check failed for %q in %s: %v", product, s.country, err)
		return Result{}
	}

	total := 0
	for _, adv := range adlibrary.Aggregate(ads) {
		total += adv.ActiveAdsCount
	}
	return Result{AdsCount: total, Measured: true}
}

// ScoreAll checks each product label with bounded concurrency and returns
// results positionally aligned with the input.
func (s *Scorer) ScoreAll(ctx context.Context, products []string) []Result {
	results := make([]Result, len(products))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, product := range products {
		g.Go(func() error {
			results[i] = s.Score(ctx, product)
			return nil
		})
	}
	// Workers never return errors; failures degrade per product.
	_ = g.Wait()
	return results
}
