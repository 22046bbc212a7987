// Package adlibrary provides access to the ad inventory source and the
// aggregation of raw ad records into per-advertiser views.
package adlibrary

import (
	"context"
	"time"
)

// Supported country codes for searches.
const (
	CountryBR = "BR"
	CountryMX = "MX"
	CountryCO = "CO"
	CountryCL = "CL"
	CountryUS = "US"
	CountryAR = "AR"
)

// ReferenceCountry is the fixed secondary market used for cross-checking
// approved candidates.
const ReferenceCountry = CountryAR

// countryLanguages maps a country code to the primary ad language.
var countryLanguages = map[string]string{
	CountryBR: "PT",
	CountryMX: "ES",
	CountryCO: "ES",
	CountryCL: "ES",
	CountryUS: "EN",
	CountryAR: "ES",
}

// CountryNames maps country codes to display names.
var CountryNames = map[string]string{
	CountryBR: "Brazil",
	CountryMX: "Mexico",
	CountryCO: "Colombia",
	CountryCL: "Chile",
	CountryUS: "United States",
	CountryAR: "Argentina",
}

// IsSupportedCountry reports whether searches can be issued for the code.
func IsSupportedCountry(code string) bool {
	_, ok := countryLanguages[code]
	return ok
}

// Language returns the primary language for a country code, or an empty
// string if the country is not supported.
func Language(country string) string {
	return countryLanguages[country]
}

// Ad is a single raw ad record returned by the inventory source. Ads are
// never persisted directly; they are folded into Advertiser views.
type Ad struct {
	ID                string    `json:"ad_id"`
	AdvertiserName    string    `json:"advertiser_name"`
	AdvertiserPageURL string    `json:"advertiser_page_url"`
	AdText            string    `json:"ad_text"`
	ImageURLs         []string  `json:"image_urls"`
	VideoURLs         []string  `json:"video_urls"`
	LandingPageURL    string    `json:"landing_page_url,omitempty"`
	StartDate         time.Time `json:"start_date"`
	IsActive          bool      `json:"is_active"`
}

// Advertiser is the aggregated view of one advertiser's ads within a
// single query batch.
type Advertiser struct {
	Name           string `json:"name"`
	PageURL        string `json:"page_url"`
	ActiveAdsCount int    `json:"active_ads_count"`
	Ads            []Ad   `json:"ads"`
}

// Searcher is the seam between the pipeline and the inventory source.
// Implementations must be safe for concurrent use.
type Searcher interface {
	// Search returns raw ad records for the given keywords in a country.
	// limit caps the number of records fetched.
	Search(ctx context.Context, country string, keywords []string, limit int) ([]Ad, error)
}
