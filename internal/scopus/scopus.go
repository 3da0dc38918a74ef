// Copyright Caddis Lab, 2026. All rights reserved.

// Package scopus fetches bibliographic records from the Elsevier Scopus
// Search API with cursor pagination and persists raw response pages.
package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caddislab/trichoptera-biblio/internal/httputil"
	"github.com/caddislab/trichoptera-biblio/internal/normalize"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// APIBaseURL is the Scopus Search endpoint. Declared as a var so tests
// can substitute an httptest server.
var APIBaseURL = "https://api.elsevier.com/content/search/scopus"

const pageSize = 25

// Client queries the Scopus Search API.
type Client struct {
	Client *http.Client
	Config types.ScopusConfig
}

// NewClient returns a Scopus client using the config's HTTP settings.
func NewClient(cfg types.ScopusConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		Client: &http.Client{Timeout: timeout},
		Config: cfg,
	}
}

// FetchResult summarizes one fetch run.
type FetchResult struct {
	Records    []types.Record
	Total      int
	Pages      int
	SkippedRaw int // entries dropped during normalization
}

// searchResponse is the subset of the Scopus payload the fetcher reads.
type searchResponse struct {
	SearchResults struct {
		TotalResults string `json:"opensearch:totalResults"`
		Cursor       struct {
			Next string `json:"@next"`
		} `json:"cursor"`
		Entries []map[string]json.RawMessage `json:"entry"`
	} `json:"search-results"`
}

// DateFilter builds the publication-window clause for a Scopus advanced
// search from YYYY-MM-DD dates. A window inside one month pins PUBYEAR
// and PUBMONTH, a window inside one year bounds PUBMONTH, and a window
// across years bounds PUBYEAR (Scopus cannot express month precision
// across year boundaries).
func DateFilter(startDate, endDate string) (string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", fmt.Errorf("parsing start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return "", fmt.Errorf("parsing end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return "", fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	switch {
	case start.Year() == end.Year() && start.Month() == end.Month():
		return fmt.Sprintf("PUBYEAR = %d AND PUBMONTH = %d", start.Year(), int(start.Month())), nil
	case start.Year() == end.Year():
		return fmt.Sprintf("PUBYEAR = %d AND PUBMONTH >= %d AND PUBMONTH <= %d",
			start.Year(), int(start.Month()), int(end.Month())), nil
	default:
		return fmt.Sprintf("PUBYEAR >= %d AND PUBYEAR <= %d", start.Year(), end.Year()), nil
	}
}

// Fetch runs the configured query and returns normalized records. It
// paginates cursor-first, sleeping PageDelay between pages; when a
// response omits the next cursor before the result set is exhausted it
// falls back to start-offset pagination, since some subscriptions do
// not serve cursors. Stops at MaxResults when that cap is set. Raw
// response pages are written under DataDir when it is configured.
// Per-page progress goes to w.
func (c *Client) Fetch(ctx context.Context, w io.Writer) (FetchResult, error) {
	if c.Config.APIKey == "" {
		return FetchResult{}, fmt.Errorf("scopus API key is required")
	}
	if c.Config.Query == "" {
		return FetchResult{}, fmt.Errorf("scopus query is required")
	}

	queryDate := time.Now().Format("2006-01-02 15:04:05")
	cursor := "*"
	useCursor := true
	fetched := 0 // raw entries consumed, including skipped ones
	var result FetchResult

	for {
		var body []byte
		var err error
		if useCursor {
			body, err = c.fetchPage(ctx, cursor, -1)
		} else {
			body, err = c.fetchPage(ctx, "", fetched)
		}
		if err != nil {
			return result, fmt.Errorf("fetching page %d: %w", result.Pages+1, err)
		}
		result.Pages++

		if c.Config.DataDir != "" {
			if err := c.saveRawPage(body, result.Pages); err != nil {
				fmt.Fprintf(w, "warning: saving raw page %d: %v\n", result.Pages, err)
			}
		}

		var sr searchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return result, fmt.Errorf("parsing page %d: %w", result.Pages, err)
		}
		if result.Pages == 1 {
			fmt.Sscanf(sr.SearchResults.TotalResults, "%d", &result.Total)
			fmt.Fprintf(w, "scopus: %d total results for query\n", result.Total)
		}

		if len(sr.SearchResults.Entries) == 0 {
			break
		}
		fetched += len(sr.SearchResults.Entries)
		for _, entry := range sr.SearchResults.Entries {
			rec, err := normalize.Normalize(flatten(entry), types.ProviderScopus)
			if err != nil {
				result.SkippedRaw++
				continue
			}
			rec.QueryDate = queryDate
			result.Records = append(result.Records, rec)
			if c.Config.MaxResults > 0 && len(result.Records) >= c.Config.MaxResults {
				fmt.Fprintf(w, "scopus: reached max results cap (%d)\n", c.Config.MaxResults)
				return result, nil
			}
		}
		fmt.Fprintf(w, "scopus: page %d, %d records so far\n", result.Pages, len(result.Records))

		next := sr.SearchResults.Cursor.Next
		switch {
		case useCursor && next != "" && next != cursor:
			cursor = next
		case len(sr.SearchResults.Entries) < pageSize:
			// A short page is the last page in either mode.
			return result, nil
		case result.Total > 0 && fetched >= result.Total:
			return result, nil
		default:
			// Full page with no usable cursor: continue with offsets.
			if useCursor {
				fmt.Fprintf(w, "scopus: no cursor in response, paginating by start offset\n")
			}
			useCursor = false
		}

		if c.Config.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.Config.PageDelay):
			}
		}
	}
	return result, nil
}

// fetchPage requests one result page, paginated by cursor when cursor is
// non-empty and by start offset otherwise.
func (c *Client) fetchPage(ctx context.Context, cursor string, start int) ([]byte, error) {
	params := url.Values{
		"query": {c.Config.Query},
		"count": {fmt.Sprintf("%d", pageSize)},
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	} else {
		params.Set("start", fmt.Sprintf("%d", start))
	}
	if c.Config.View != "" {
		params.Set("view", c.Config.View)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, APIBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-ELS-APIKey", c.Config.APIKey)
	if c.Config.InstToken != "" {
		req.Header.Set("X-ELS-Insttoken", c.Config.InstToken)
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("scopus API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scopus API returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// saveRawPage writes the raw API response for audit and reprocessing.
// Windowed runs archive under a per-window subdirectory so yearly
// fetches sharing a DataDir keep every window's pages.
func (c *Client) saveRawPage(body []byte, page int) error {
	dir := filepath.Join(c.Config.DataDir, "raw", "scopus")
	if c.Config.Window != "" {
		dir = filepath.Join(dir, c.Config.Window)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%04d.json", page))
	return os.WriteFile(path, body, 0o644)
}

// flatten reduces a Scopus entry to its string-valued fields. Nested
// values (links, affiliation arrays) are not needed by normalization.
func flatten(entry map[string]json.RawMessage) map[string]string {
	flat := make(map[string]string, len(entry))
	for k, raw := range entry {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			flat[k] = s
		}
	}
	return flat
}
