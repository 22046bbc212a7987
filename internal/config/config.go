// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/adscout/internal/adlibrary"
)

// Config represents the CLI configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Search
	Country  string   `json:"country,omitempty"`  // Target market code (BR, MX, ...)
	Keywords []string `json:"keywords,omitempty"` // Search keywords

	// Validation thresholds
	MinActiveAds       int     `json:"min_active_ads,omitempty"`
	MinUniproductRatio float64 `json:"min_uniproduct_ratio,omitempty"`
	MinDuplicatesScore float64 `json:"min_duplicates_score,omitempty"`

	// Limits
	SearchLimit    int `json:"search_limit,omitempty"`    // Primary search result cap
	SecondaryLimit int `json:"secondary_limit,omitempty"` // Reference-market result cap
	CrossWorkers   int `json:"cross_workers,omitempty"`   // Concurrent reference-market checks

	// Behavior
	AccessToken string `json:"access_token,omitempty"` // Ad Library API access token
	UseMock     bool   `json:"use_mock,omitempty"`     // Use generated inventory instead of the API
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. Required
// fields are checked later, after CLI flag merging.
func (c *Config) Validate() error {
	if c.Country != "" && !adlibrary.IsSupportedCountry(c.Country) {
		return fmt.Errorf("config error: unsupported country %q", c.Country)
	}
	if c.MinActiveAds < 0 {
		return fmt.Errorf("config error: 'min_active_ads' must be non-negative")
	}
	if c.MinUniproductRatio < 0 || c.MinUniproductRatio > 1 {
		return fmt.Errorf("config error: 'min_uniproduct_ratio' must be in [0,1]")
	}
	if c.MinDuplicatesScore < 0 || c.MinDuplicatesScore > 1 {
		return fmt.Errorf("config error: 'min_duplicates_score' must be in [0,1]")
	}
	if c.SearchLimit < 0 || c.SecondaryLimit < 0 || c.CrossWorkers < 0 {
		return fmt.Errorf("config error: limits must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled
// from defaults. Used to apply config file values as defaults for flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Country == "" {
		result.Country = defaults.Country
	}
	if len(result.Keywords) == 0 {
		result.Keywords = defaults.Keywords
	}
	if result.AccessToken == "" {
		result.AccessToken = defaults.AccessToken
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MinActiveAds == 0 {
		result.MinActiveAds = defaults.MinActiveAds
	}
	if result.MinUniproductRatio == 0 {
		result.MinUniproductRatio = defaults.MinUniproductRatio
	}
	if result.MinDuplicatesScore == 0 {
		result.MinDuplicatesScore = defaults.MinDuplicatesScore
	}
	if result.SearchLimit == 0 {
		result.SearchLimit = defaults.SearchLimit
	}
	if result.SecondaryLimit == 0 {
		result.SecondaryLimit = defaults.SecondaryLimit
	}
	if result.CrossWorkers == 0 {
		result.CrossWorkers = defaults.CrossWorkers
	}

	// Bool fields: cannot distinguish unset from false, so we don't
	// merge (CLI flags should always win for bools)

	return result
}
