package adlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// apiBase is the Ad Library archive endpoint.
const apiBase = "https://graph.facebook.com/v21.0/ads_archive"

// DefaultTimeout is the HTTP timeout for a single archive query. Archive
// queries routinely take tens of seconds.
const DefaultTimeout = 30 * time.Second

// maxAPILimit is the largest page size the archive API accepts.
const maxAPILimit = 100

// APIError represents a failed inventory-source request.
type APIError struct {
	Country    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ad library error for %s: %s: %v", e.Country, e.Message, e.Cause)
	}
	return fmt.Sprintf("ad library error for %s: %s", e.Country, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Client queries the Meta Ad Library archive API.
type Client struct {
	httpClient *http.Client
	token      string
}

// NewClient creates an archive API client with the given access token.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		token:      token,
	}
}

// archiveRecord mirrors the fields requested from the archive API.
type archiveRecord struct {
	ID                   string   `json:"id"`
	PageName             string   `json:"page_name"`
	PageID               string   `json:"page_id"`
	AdCreativeBodies     []string `json:"ad_creative_bodies"`
	AdCreativeLinkTitles []string `json:"ad_creative_link_titles"`
	AdDeliveryStartTime  string   `json:"ad_delivery_start_time"`
	AdSnapshotURL        string   `json:"ad_snapshot_url"`
}

type archiveResponse struct {
	Data []archiveRecord `json:"data"`
}

// Search issues one archive query for the keyword list. Keywords are
// joined into a single search term; the archive treats the joined string
// as an unordered keyword query.
func (c *Client) Search(ctx context.Context, country string, keywords []string, limit int) ([]Ad, error) {
	if !IsSupportedCountry(country) {
		return nil, &APIError{Country: country, Message: "unsupported country"}
	}
	if limit <= 0 || limit > maxAPILimit {
		limit = maxAPILimit
	}

	terms := strings.Join(keywords, " ")

	params := url.Values{}
	params.Set("search_terms", terms)
	// The archive API requires ad_reached_countries as a JSON array string.
	params.Set("ad_reached_countries", fmt.Sprintf(`["%s"]`, country))
	params.Set("ad_type", "ALL")
	params.Set("ad_active_status", "ALL")
	params.Set("fields", "id,page_name,page_id,ad_creative_bodies,ad_creative_link_titles,ad_delivery_start_time,ad_snapshot_url")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("access_token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &APIError{Country: country, Message: "building request", Cause: err}
	}

	log.Printf("[AdLibrary] GET %s?search_terms=%s&ad_reached_countries=[\"%s\"]&...", apiBase, url.QueryEscape(terms), country)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Country: country, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Country: country, StatusCode: resp.StatusCode, Message: "reading response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Country:    country,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var parsed archiveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &APIError{Country: country, StatusCode: resp.StatusCode, Message: "decoding response", Cause: err}
	}

	ads := mapArchiveRecords(parsed.Data, country)
	log.Printf("[AdLibrary] Got %d records for %q in %s", len(ads), terms, country)
	return ads, nil
}

// mapArchiveRecords converts archive API records into raw ad records.
func mapArchiveRecords(records []archiveRecord, country string) []Ad {
	ads := make([]Ad, 0, len(records))
	for _, rec := range records {
		name := rec.PageName
		if name == "" {
			name = "Unknown"
		}

		pageURL := rec.AdSnapshotURL
		if rec.PageID != "" {
			pageURL = fmt.Sprintf(
				"https://www.facebook.com/ads/library/?active_status=all&ad_type=all&country=%s&view_all_page_id=%s",
				country, rec.PageID)
		}

		text := ""
		if len(rec.AdCreativeBodies) > 0 {
			text = rec.AdCreativeBodies[0]
		} else if len(rec.AdCreativeLinkTitles) > 0 {
			text = rec.AdCreativeLinkTitles[0]
		}

		start := time.Now().UTC()
		if rec.AdDeliveryStartTime != "" {
			if t, err := parseArchiveTime(rec.AdDeliveryStartTime); err == nil {
				start = t
			}
		}

		ads = append(ads, Ad{
			ID:                rec.ID,
			AdvertiserName:    name,
			AdvertiserPageURL: pageURL,
			AdText:            StripMarkup(text),
			LandingPageURL:    rec.AdSnapshotURL,
			StartDate:         start,
			IsActive:          true,
		})
	}
	return ads
}

// parseArchiveTime handles the two timestamp shapes the archive emits.
func parseArchiveTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripMarkup reduces creative body markup to plain text. Creative bodies
// frequently arrive as HTML fragments; goquery handles well-formed markup
// and a regex fallback covers fragments it cannot parse.
func StripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(tagPattern.ReplaceAllString(s, " "))
	}
	text := doc.Text()
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
