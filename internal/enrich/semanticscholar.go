// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SemanticScholarBaseURL is a package-level variable to allow test
// substitution.
var SemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

// SemanticScholar queries the Semantic Scholar Graph API paper endpoint.
// An API key raises the rate limit but is not required.
type SemanticScholar struct {
	client *http.Client
	apiKey string
}

// NewSemanticScholar returns a Semantic Scholar source. The API key is
// optional.
func NewSemanticScholar(apiKey string, timeout time.Duration) *SemanticScholar {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SemanticScholar{
		client: &http.Client{Timeout: timeout},
		apiKey: apiKey,
	}
}

func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// FetchAbstract looks up a paper by DOI and returns its abstract.
func (s *SemanticScholar) FetchAbstract(ctx context.Context, doi string) (string, error) {
	u := fmt.Sprintf("%s/paper/DOI:%s?fields=abstract", SemanticScholarBaseURL, url.PathEscape(doi))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building semantic scholar request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("semantic scholar returned status %d", resp.StatusCode)
	}

	var paper struct {
		Abstract string `json:"abstract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&paper); err != nil {
		return "", ErrNotFound
	}
	if paper.Abstract == "" {
		return "", ErrNotFound
	}
	return paper.Abstract, nil
}
