package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/adscout/internal/adlibrary"
)

// uniformAdvertiser builds an advertiser whose ads all share one product
// signature. When distinctTail is true, each text gets a distinct long
// suffix so nothing is a verbatim duplicate.
func uniformAdvertiser(n int, distinctTail bool) *adlibrary.Advertiser {
	adv := &adlibrary.Advertiser{Name: "NutriForce Brasil", PageURL: "https://fb.com/nutriforce"}
	for i := 0; i < n; i++ {
		text := "ebook fitness completo transforma cuerpo"
		if distinctTail {
			text = fmt.Sprintf("%s variante numero %04d especial", text, i)
		}
		adv.Ads = append(adv.Ads, adlibrary.Ad{
			ID:             fmt.Sprintf("ad-%d", i),
			AdvertiserName: adv.Name,
			AdText:         text,
			IsActive:       true,
		})
	}
	adv.ActiveAdsCount = n
	return adv
}

func TestValidate_UniformNoDuplicates(t *testing.T) {
	// 25 ads, all one product, no verbatim repeats: active and
	// uniproduct signals pass, duplicates fails, so the verdict fails
	// despite a composite score of 70.
	adv := uniformAdvertiser(25, true)
	m := Validate(adv, DefaultCriteria())

	assert.Equal(t, 25, m.ActiveAdsCount)
	assert.InDelta(t, 1.0, m.UniproductRatio, 1e-9)
	assert.InDelta(t, 0.0, m.DuplicatesScore, 1e-9)
	assert.Equal(t, 70, m.TotalScore)
	assert.False(t, m.Passed)
	require.Len(t, m.Reasons, 3)
}

func TestValidate_DuplicatesPushVerdictOver(t *testing.T) {
	// 15 distinct ads plus 10 exact repeats of the first: all three
	// signals pass.
	adv := uniformAdvertiser(15, true)
	for i := 0; i < 10; i++ {
		adv.Ads = append(adv.Ads, adv.Ads[0])
	}
	adv.ActiveAdsCount = len(adv.Ads)

	m := Validate(adv, DefaultCriteria())
	assert.Equal(t, 25, m.ActiveAdsCount)
	assert.GreaterOrEqual(t, m.DuplicatesScore, 0.3)
	assert.GreaterOrEqual(t, m.UniproductRatio, 0.8)
	assert.True(t, m.Passed)
}

func TestValidate_ActiveTermCappedAt40(t *testing.T) {
	few := uniformAdvertiser(20, true)
	many := uniformAdvertiser(200, true)

	c := DefaultCriteria()
	// Excess above the minimum contributes nothing to the composite.
	assert.Equal(t,
		Score(few.ActiveAdsCount, 1, 0, c),
		Score(many.ActiveAdsCount, 1, 0, c))
	assert.Equal(t, 70, Score(200, 1, 0, c))
}

func TestValidate_BelowMinimumScalesActiveTerm(t *testing.T) {
	c := DefaultCriteria()
	// 10 of 20 required ads: half of the 40-point term.
	assert.Equal(t, 20, Score(10, 0, 0, c))
	assert.Equal(t, 0, Score(0, 0, 0, c))
	assert.Equal(t, 100, Score(20, 1, 1, c))
}

func TestValidate_Deterministic(t *testing.T) {
	adv := uniformAdvertiser(25, true)
	adv.Ads[3].ImageURLs = []string{"https://cdn.com/ab12cd_n.jpg"}
	adv.Ads[7].ImageURLs = []string{"https://cdn.com/ab12cd_n.jpg"}

	first := Validate(adv, DefaultCriteria())
	second := Validate(adv, DefaultCriteria())
	assert.Equal(t, first, second)
}

func TestValidate_SignalRanges(t *testing.T) {
	advertisers := []*adlibrary.Advertiser{
		{Name: "empty"},
		{Name: "single", Ads: []adlibrary.Ad{{AdText: "solo"}}, ActiveAdsCount: 1},
		uniformAdvertiser(5, false),
		uniformAdvertiser(50, true),
	}

	for _, adv := range advertisers {
		m := Validate(adv, DefaultCriteria())
		assert.GreaterOrEqual(t, m.UniproductRatio, 0.0)
		assert.LessOrEqual(t, m.UniproductRatio, 1.0)
		assert.GreaterOrEqual(t, m.DuplicatesScore, 0.0)
		assert.LessOrEqual(t, m.DuplicatesScore, 1.0)
		assert.GreaterOrEqual(t, m.TotalScore, 0)
		assert.LessOrEqual(t, m.TotalScore, 100)
	}
}

func TestDuplicatesScore_ShortTextsNeverFlagged(t *testing.T) {
	ads := []adlibrary.Ad{
		{AdText: "oferta!"},
		{AdText: "oferta!"},
		{AdText: "oferta!"},
	}
	// "oferta" normalizes to 6 characters, below the length floor.
	assert.Equal(t, 0.0, DuplicatesScore(ads))
}

func TestDuplicatesScore_ImageRepeats(t *testing.T) {
	ads := []adlibrary.Ad{
		{AdText: "texto uno distinto aqui", ImageURLs: []string{"https://cdn.com/t39/9f86d081ab_n.jpg"}},
		{AdText: "texto dos distinto aqui", ImageURLs: []string{"https://cdn.com/t40/9f86d081ab_hd.jpg"}},
		{AdText: "texto tres distinto aqui"},
	}
	// Same content id behind two different URLs counts as one repeat.
	assert.InDelta(t, 1.0/3.0, DuplicatesScore(ads), 1e-9)
}

func TestDuplicatesScore_FewerThanTwoAds(t *testing.T) {
	assert.Equal(t, 0.0, DuplicatesScore(nil))
	assert.Equal(t, 0.0, DuplicatesScore([]adlibrary.Ad{{AdText: "solo un anuncio largo"}}))
}

func TestUniproductRatio_MixedProducts(t *testing.T) {
	ads := []adlibrary.Ad{
		{AdText: "ebook fitness completo para transformar"},
		{AdText: "ebook fitness completo para transformar"},
		{AdText: "ebook fitness completo para transformar"},
		{AdText: "curso marketing digital avanzado completo"},
	}
	assert.InDelta(t, 0.75, UniproductRatio(ads), 1e-9)
}
