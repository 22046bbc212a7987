package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/adscout/internal/adlibrary"
	"github.com/jonathan/adscout/internal/crossmarket"
	"github.com/jonathan/adscout/internal/db"
	"github.com/jonathan/adscout/internal/validation"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu         sync.Mutex
	runs       map[uuid.UUID]*db.Run
	candidates []db.Candidate
	insertErr  error
	updateErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: make(map[uuid.UUID]*db.Run)}
}

func (f *fakeStore) CreateRun(_ context.Context, country, language string, keywords []string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.runs[id] = &db.Run{
		ID:            id,
		TargetCountry: country,
		Language:      language,
		Keywords:      keywords,
		Status:        db.RunStatusInProgress,
		CreatedAt:     time.Now().UTC(),
	}
	return id, nil
}

func (f *fakeStore) UpdateRunStatus(_ context.Context, runID uuid.UUID, status, summary string, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	run, ok := f.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	run.Status = status
	run.Summary = summary
	run.FinishedAt = &finishedAt
	return nil
}

func (f *fakeStore) InsertCandidates(_ context.Context, candidates []db.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.candidates = append(f.candidates, candidates...)
	return nil
}

func (f *fakeStore) run(id uuid.UUID) *db.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id]
}

// countrySearcher serves a fixed ad list per country and counts calls.
type countrySearcher struct {
	mu      sync.Mutex
	byCode  map[string][]adlibrary.Ad
	errsFor map[string]error
	calls   map[string]int
}

func newCountrySearcher() *countrySearcher {
	return &countrySearcher{
		byCode:  make(map[string][]adlibrary.Ad),
		errsFor: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (c *countrySearcher) Search(_ context.Context, country string, _ []string, _ int) ([]adlibrary.Ad, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[country]++
	if err := c.errsFor[country]; err != nil {
		return nil, err
	}
	return c.byCode[country], nil
}

// singleProductAds returns n ads for one advertiser that share a product
// signature. When withRepeats > 0, that many ads are verbatim copies of
// the first one.
func singleProductAds(n, withRepeats int) []adlibrary.Ad {
	ads := make([]adlibrary.Ad, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("ebook fitness completo transforma cuerpo plan %04d premium", i)
		if i < withRepeats {
			text = "ebook fitness completo transforma cuerpo plan original premium"
		}
		ads = append(ads, adlibrary.Ad{
			ID:                fmt.Sprintf("ad-%d", i),
			AdvertiserName:    "NutriForce Brasil",
			AdvertiserPageURL: "https://fb.com/nutriforce",
			AdText:            text,
			IsActive:          true,
		})
	}
	return ads
}

func newOrchestrator(store Store, src adlibrary.Searcher) *Orchestrator {
	scorer := crossmarket.New(src)
	return New(store, src, scorer)
}

func TestProcess_SingleProductNoDuplicates(t *testing.T) {
	// 25 ads on one product with no verbatim repeats: the duplicate
	// gate fails, so the candidate stays pending and the reference
	// market is never queried.
	store := newFakeStore()
	src := newCountrySearcher()
	src.byCode["BR"] = singleProductAds(25, 0)

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook fitness"})
	require.NoError(t, err)

	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook fitness"},
		Criteria: validation.DefaultCriteria(),
	})
	require.NoError(t, err)

	require.Len(t, store.candidates, 1)
	c := store.candidates[0]
	assert.Equal(t, "NutriForce Brasil", c.AdvertiserName)
	assert.Equal(t, "ebook fitness", c.KeywordOrigin)
	assert.Equal(t, "ebook fitness", c.ProductDetected)
	assert.Equal(t, 25, c.ActiveAdsCount)
	assert.InDelta(t, 1.0, c.UniproductRatio, 1e-9)
	assert.InDelta(t, 0.0, c.DuplicatesScore, 1e-9)
	assert.Equal(t, 70, c.TotalScore)
	assert.Equal(t, db.CandidateStatusPending, c.Status)
	assert.Nil(t, c.ArAdsCount)

	run := store.run(runID)
	assert.Equal(t, db.RunStatusCompleted, run.Status)
	assert.Equal(t, "Found 1 advertisers, 1 candidates saved", run.Summary)
	assert.NotNil(t, run.FinishedAt)

	// Only the primary market was searched
	assert.Equal(t, 1, src.calls["BR"])
	assert.Zero(t, src.calls["AR"])
}

func TestProcess_ApprovedCandidateCrossChecked(t *testing.T) {
	// 10 of 25 ads are verbatim repeats: all three gates pass and the
	// reference market is queried exactly once.
	store := newFakeStore()
	src := newCountrySearcher()
	src.byCode["BR"] = singleProductAds(25, 11)
	src.byCode["AR"] = []adlibrary.Ad{
		{ID: "ar-1", AdvertiserName: "MuscleAR"},
		{ID: "ar-2", AdvertiserName: "MuscleAR"},
		{ID: "ar-3", AdvertiserName: "Suplementos BA"},
	}

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook fitness"})
	require.NoError(t, err)

	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook fitness"},
		Criteria: validation.DefaultCriteria(),
	})
	require.NoError(t, err)

	require.Len(t, store.candidates, 1)
	c := store.candidates[0]
	assert.GreaterOrEqual(t, c.DuplicatesScore, 0.3)
	assert.Equal(t, db.CandidateStatusApprovedForAR, c.Status)
	require.NotNil(t, c.ArAdsCount)
	assert.Equal(t, 3, *c.ArAdsCount)

	assert.Equal(t, 1, src.calls["AR"])
	assert.Equal(t, db.RunStatusCompleted, store.run(runID).Status)
}

func TestProcess_PrimarySearchFailure(t *testing.T) {
	store := newFakeStore()
	src := newCountrySearcher()
	src.errsFor["BR"] = errors.New("network unreachable")

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook fitness"})
	require.NoError(t, err)

	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook fitness"},
		Criteria: validation.DefaultCriteria(),
	})
	require.Error(t, err)

	assert.Empty(t, store.candidates)
	run := store.run(runID)
	assert.Equal(t, db.RunStatusError, run.Status)
	assert.Contains(t, run.Summary, "network unreachable")
	assert.NotNil(t, run.FinishedAt)
}

func TestProcess_CrossCheckFailureDegradesToZero(t *testing.T) {
	store := newFakeStore()
	src := newCountrySearcher()
	src.byCode["BR"] = singleProductAds(25, 11)
	src.errsFor["AR"] = errors.New("rate limited")

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook fitness"})
	require.NoError(t, err)

	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook fitness"},
		Criteria: validation.DefaultCriteria(),
	})
	require.NoError(t, err)

	// The run still completes; the failed check records a zero count.
	require.Len(t, store.candidates, 1)
	c := store.candidates[0]
	assert.Equal(t, db.CandidateStatusApprovedForAR, c.Status)
	require.NotNil(t, c.ArAdsCount)
	assert.Zero(t, *c.ArAdsCount)
	assert.Equal(t, db.RunStatusCompleted, store.run(runID).Status)
}

func TestProcess_InsertFailureFailsRun(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	src := newCountrySearcher()
	src.byCode["BR"] = singleProductAds(5, 0)

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook"})
	require.NoError(t, err)

	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook"},
		Criteria: validation.DefaultCriteria(),
	})
	require.Error(t, err)
	run := store.run(runID)
	assert.Equal(t, db.RunStatusError, run.Status)
	assert.Contains(t, run.Summary, "disk full")
}

func TestProcess_ArCountSetIffApproved(t *testing.T) {
	// Mixed batch: one advertiser passes, one fails on low volume.
	store := newFakeStore()
	src := newCountrySearcher()
	ads := singleProductAds(25, 11)
	for i := 0; i < 3; i++ {
		ads = append(ads, adlibrary.Ad{
			ID:             fmt.Sprintf("small-%d", i),
			AdvertiserName: "Tiny Shop",
			AdText:         fmt.Sprintf("producto pequeño variante %d", i),
		})
	}
	src.byCode["BR"] = ads
	src.byCode["AR"] = []adlibrary.Ad{{ID: "ar-1", AdvertiserName: "X"}}

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook fitness"})
	require.NoError(t, err)

	require.NoError(t, o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook fitness"},
		Criteria: validation.DefaultCriteria(),
	}))

	require.Len(t, store.candidates, 2)
	for _, c := range store.candidates {
		if c.Status == db.CandidateStatusApprovedForAR {
			assert.NotNil(t, c.ArAdsCount, "approved candidate %s", c.AdvertiserName)
		} else {
			assert.Nil(t, c.ArAdsCount, "non-approved candidate %s", c.AdvertiserName)
		}
	}
}

func TestProcess_StatusUpdateFailureIsNotEscalated(t *testing.T) {
	store := newFakeStore()
	store.updateErr = errors.New("connection reset")
	src := newCountrySearcher()
	src.byCode["BR"] = singleProductAds(5, 0)

	o := newOrchestrator(store, src)
	runID, err := o.CreateRun(context.Background(), "BR", []string{"ebook"})
	require.NoError(t, err)

	// Candidates were written; only the final status write failed.
	err = o.Process(context.Background(), RunParams{
		RunID:    runID,
		Country:  "BR",
		Keywords: []string{"ebook"},
		Criteria: validation.DefaultCriteria(),
	})
	assert.NoError(t, err)
	assert.Len(t, store.candidates, 1)
	assert.Equal(t, db.RunStatusInProgress, store.run(runID).Status)
}

func TestCreateRun_UnsupportedCountry(t *testing.T) {
	o := newOrchestrator(newFakeStore(), newCountrySearcher())
	_, err := o.CreateRun(context.Background(), "XX", []string{"ebook"})
	assert.Error(t, err)
}

func TestProductLabel(t *testing.T) {
	adv := &adlibrary.Advertiser{Ads: []adlibrary.Ad{
		{AdText: "Transforma tu cuerpo con nuestra línea completa de suplementos"},
	}}

	assert.Equal(t, "ebook fitness", productLabel([]string{"ebook fitness"}, adv))
	assert.Equal(t, "Transforma tu cuerpo con nuestra", productLabel(nil, adv))
	assert.Equal(t, "Unknown Product", productLabel(nil, &adlibrary.Advertiser{}))

	long := &adlibrary.Advertiser{Ads: []adlibrary.Ad{
		{AdText: "Palabralarguisimaquesobrepasaloslimitesdelnombre deprod ucto con cincuenta caracteres"},
	}}
	assert.LessOrEqual(t, len([]rune(productLabel(nil, long))), 50)
}
