// Package validation scores advertisers against the single-product
// campaign criteria: active ad volume, uniproduct concentration, and
// creative duplication.
package validation

import (
	"fmt"
	"math"

	"github.com/jonathan/adscout/internal/adlibrary"
)

// Criteria holds the thresholds an advertiser must clear.
type Criteria struct {
	MinActiveAds       int     `json:"min_active_ads"`
	MinUniproductRatio float64 `json:"min_uniproduct_ratio"`
	MinDuplicatesScore float64 `json:"min_duplicates_score"`
}

// DefaultCriteria returns the stock thresholds: at least 20 active ads,
// 80% of ads concentrated on one product, 30% duplicated creatives.
func DefaultCriteria() Criteria {
	return Criteria{
		MinActiveAds:       20,
		MinUniproductRatio: 0.8,
		MinDuplicatesScore: 0.3,
	}
}

// Metrics is the result of validating one advertiser. Reasons are
// advisory text for operators; downstream logic only reads Passed and the
// numeric fields.
type Metrics struct {
	ActiveAdsCount  int      `json:"active_ads_count"`
	UniproductRatio float64  `json:"uniproduct_ratio"`
	DuplicatesScore float64  `json:"duplicates_score"`
	TotalScore      int      `json:"total_score"`
	Reasons         []string `json:"reasons"`
	Passed          bool     `json:"passed"`
}

// Validate scores an advertiser against the criteria. Pure and
// deterministic; identical input yields identical output.
func Validate(adv *adlibrary.Advertiser, criteria Criteria) Metrics {
	reasons := make([]string, 0, 3)

	activeAdsCount := adv.ActiveAdsCount
	activePassed := activeAdsCount >= criteria.MinActiveAds
	if activePassed {
		reasons = append(reasons, fmt.Sprintf("has %d active ads (>=%d)", activeAdsCount, criteria.MinActiveAds))
	} else {
		reasons = append(reasons, fmt.Sprintf("only %d active ads (<%d)", activeAdsCount, criteria.MinActiveAds))
	}

	uniproductRatio := UniproductRatio(adv.Ads)
	uniproductPassed := uniproductRatio >= criteria.MinUniproductRatio
	if uniproductPassed {
		reasons = append(reasons, fmt.Sprintf("uniproduct ratio %.0f%% (>=%.0f%%)", uniproductRatio*100, criteria.MinUniproductRatio*100))
	} else {
		reasons = append(reasons, fmt.Sprintf("uniproduct ratio %.0f%% (<%.0f%%)", uniproductRatio*100, criteria.MinUniproductRatio*100))
	}

	duplicatesScore := DuplicatesScore(adv.Ads)
	duplicatesPassed := duplicatesScore >= criteria.MinDuplicatesScore
	if duplicatesPassed {
		reasons = append(reasons, fmt.Sprintf("duplicates score %.0f%% (>=%.0f%%)", duplicatesScore*100, criteria.MinDuplicatesScore*100))
	} else {
		reasons = append(reasons, fmt.Sprintf("duplicates score %.0f%% (<%.0f%%)", duplicatesScore*100, criteria.MinDuplicatesScore*100))
	}

	return Metrics{
		ActiveAdsCount:  activeAdsCount,
		UniproductRatio: uniproductRatio,
		DuplicatesScore: duplicatesScore,
		TotalScore:      Score(activeAdsCount, uniproductRatio, duplicatesScore, criteria),
		Reasons:         reasons,
		// The composite score alone is never sufficient; all three
		// gates must pass independently.
		Passed: activePassed && uniproductPassed && duplicatesPassed,
	}
}

// Score computes the composite 0-100 score: the active-ad term is worth
// up to 40 points and is capped there even when the count far exceeds the
// minimum; the two ratios are worth 30 points each.
func Score(activeAdsCount int, uniproductRatio, duplicatesScore float64, criteria Criteria) int {
	activeScore := math.Min(float64(activeAdsCount)/float64(criteria.MinActiveAds), 1) * 40
	return int(math.Round(activeScore + uniproductRatio*30 + duplicatesScore*30))
}

// UniproductRatio returns the fraction of ads attributable to the single
// most common product signature, in [0,1]. Zero for an empty ad list.
func UniproductRatio(ads []adlibrary.Ad) float64 {
	if len(ads) == 0 {
		return 0
	}

	groups := make(map[string]int)
	for _, ad := range ads {
		groups[ProductKey(ad.AdText)]++
	}

	max := 0
	for _, count := range groups {
		if count > max {
			max = count
		}
	}
	return float64(max) / float64(len(ads))
}

// DuplicatesScore returns the fraction of ads that repeat an earlier ad
// in the same batch, by normalized text or by image content key, capped
// at 1. Texts of 10 or fewer characters are never flagged to avoid false
// positives on generic copy.
func DuplicatesScore(ads []adlibrary.Ad) float64 {
	if len(ads) < 2 {
		return 0
	}

	duplicates := 0
	seenTexts := make(map[string]bool)
	seenImages := make(map[string]bool)

	for _, ad := range ads {
		text := NormalizeText(ad.AdText)
		if seenTexts[text] && len([]rune(text)) > 10 {
			duplicates++
		} else {
			seenTexts[text] = true
		}

		for _, imageURL := range ad.ImageURLs {
			key := ImageKey(imageURL)
			if seenImages[key] {
				duplicates++
			} else {
				seenImages[key] = true
			}
		}
	}

	return math.Min(float64(duplicates)/float64(len(ads)), 1)
}
