package adlibrary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	out := Aggregate(nil)
	assert.Empty(t, out)
}

func TestAggregate_GroupsByName(t *testing.T) {
	ads := []Ad{
		{ID: "1", AdvertiserName: "Alpha", AdvertiserPageURL: "https://fb.com/alpha", AdText: "first"},
		{ID: "2", AdvertiserName: "Beta", AdvertiserPageURL: "https://fb.com/beta", AdText: "second"},
		{ID: "3", AdvertiserName: "Alpha", AdvertiserPageURL: "https://fb.com/alpha-other", AdText: "third"},
	}

	out := Aggregate(ads)
	require.Len(t, out, 2)

	alpha := out["Alpha"]
	require.NotNil(t, alpha)
	assert.Equal(t, 2, alpha.ActiveAdsCount)
	// First-seen record seeds the page URL
	assert.Equal(t, "https://fb.com/alpha", alpha.PageURL)
	require.Len(t, alpha.Ads, 2)
	assert.Equal(t, "1", alpha.Ads[0].ID)
	assert.Equal(t, "3", alpha.Ads[1].ID)

	beta := out["Beta"]
	require.NotNil(t, beta)
	assert.Equal(t, 1, beta.ActiveAdsCount)
}

func TestAggregate_CountsInactiveRecords(t *testing.T) {
	// Every fetched record counts toward ActiveAdsCount regardless of
	// its activity flag.
	ads := []Ad{
		{ID: "1", AdvertiserName: "Alpha", IsActive: true},
		{ID: "2", AdvertiserName: "Alpha", IsActive: false},
	}

	out := Aggregate(ads)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out["Alpha"].ActiveAdsCount)
}

func TestAggregate_DistinctNamesStayDistinct(t *testing.T) {
	// Case-sensitive exact match on display name.
	ads := []Ad{
		{ID: "1", AdvertiserName: "alpha"},
		{ID: "2", AdvertiserName: "Alpha"},
	}

	out := Aggregate(ads)
	assert.Len(t, out, 2)
}

func TestAggregate_PreservesArrivalOrderWithinAdvertiser(t *testing.T) {
	var ads []Ad
	for i := 0; i < 10; i++ {
		name := "A"
		if i%2 == 1 {
			name = "B"
		}
		ads = append(ads, Ad{ID: fmt.Sprintf("%d", i), AdvertiserName: name})
	}

	out := Aggregate(ads)
	require.Len(t, out, 2)
	for _, adv := range out {
		prev := -1
		for _, ad := range adv.Ads {
			var n int
			_, err := fmt.Sscanf(ad.ID, "%d", &n)
			require.NoError(t, err)
			assert.Greater(t, n, prev)
			prev = n
		}
	}
}
