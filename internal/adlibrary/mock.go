package adlibrary

import (
	"context"
	"fmt"
	"log"
	"time"
)

// mockAdvertiser seeds the generated inventory for one advertiser.
type mockAdvertiser struct {
	name    string
	pageURL string
	adCount int
}

// mockPools holds per-country advertiser pools used when no access token
// is configured. Useful for local development and demos.
var mockPools = map[string][]mockAdvertiser{
	CountryBR: {
		{"NutriForce Brasil", "https://facebook.com/nutriforce", 47},
		{"FitShop BR", "https://facebook.com/fitshopbr", 31},
		{"Suplementos Pro", "https://facebook.com/suplpro", 28},
		{"MaxMuscle Store", "https://facebook.com/maxmuscle", 22},
		{"VidaActiva Brasil", "https://facebook.com/vidaativa", 18},
	},
	CountryMX: {
		{"Proteína MX", "https://facebook.com/protmx", 53},
		{"GymStore México", "https://facebook.com/gymstore", 39},
		{"NutriMex Pro", "https://facebook.com/nutrimex", 25},
		{"FitLife CDMX", "https://facebook.com/fitlife", 20},
	},
	CountryAR: {
		{"MuscleAR", "https://facebook.com/musclear", 35},
		{"Suplementos BA", "https://facebook.com/suplba", 27},
		{"FitStore Argentina", "https://facebook.com/fitar", 19},
	},
	CountryCO: {
		{"NutriCo Colombia", "https://facebook.com/nutrico", 29},
		{"ProFit Bogotá", "https://facebook.com/profitbo", 21},
	},
	CountryCL: {
		{"FitCenter Chile", "https://facebook.com/fitcl", 33},
		{"MuscleCL", "https://facebook.com/musclecl", 24},
	},
	CountryUS: {
		{"ProteinWorld US", "https://facebook.com/pwus", 78},
		{"GNC Official", "https://facebook.com/gnc", 62},
		{"Bodybuilding.com", "https://facebook.com/bbcom", 55},
	},
}

// MockClient generates deterministic inventory without touching the
// network. It satisfies Searcher and is selected by the serve command when
// META_ACCESS_TOKEN is not set.
type MockClient struct {
	// Now returns the clock used for ad start dates. Defaults to
	// time.Now; tests pin it for determinism.
	Now func() time.Time
}

// NewMockClient creates a mock inventory source.
func NewMockClient() *MockClient {
	return &MockClient{Now: time.Now}
}

// Search generates ads for a subset of the country's advertiser pool.
// Each advertiser gets three ad variants per keyword.
func (m *MockClient) Search(_ context.Context, country string, keywords []string, limit int) ([]Ad, error) {
	pool, ok := mockPools[country]
	if !ok {
		pool = mockPools[CountryBR]
	}
	if limit <= 0 || limit > len(pool) {
		limit = len(pool)
	}

	log.Printf("[AdLibrary] Using mock inventory for %s (%d advertisers)", country, limit)

	now := m.Now().UTC()
	var ads []Ad
	for _, base := range pool[:limit] {
		var texts []string
		for _, kw := range keywords {
			texts = append(texts,
				fmt.Sprintf("🔥 Los mejores productos de %s. Envío gratis. ¡Oferta por tiempo limitado!", kw),
				fmt.Sprintf("Transforma tu cuerpo con nuestra línea %s. Calidad garantizada.", kw),
				fmt.Sprintf("%s profesional directo de fábrica. Precio especial hoy.", kw),
			)
		}
		for i, text := range texts {
			ads = append(ads, Ad{
				ID:                fmt.Sprintf("mock_%s_%d", base.name, i),
				AdvertiserName:    base.name,
				AdvertiserPageURL: base.pageURL,
				AdText:            text,
				StartDate:         now.Add(-time.Duration(i) * 5 * 24 * time.Hour),
				IsActive:          true,
			})
		}
	}
	return ads, nil
}
