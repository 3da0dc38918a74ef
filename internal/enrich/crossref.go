// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// CrossRefBaseURL is a package-level variable to allow test substitution.
var CrossRefBaseURL = "https://api.crossref.org"

// CrossRef queries the CrossRef works endpoint. CrossRef abstracts carry
// JATS XML markup, which FetchAbstract strips to plain text.
type CrossRef struct {
	client *http.Client

	// Email joins the polite pool via the mailto parameter when set.
	Email string
}

// NewCrossRef returns a CrossRef source. Email is optional.
func NewCrossRef(email string, timeout time.Duration) *CrossRef {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CrossRef{
		client: &http.Client{Timeout: timeout},
		Email:  email,
	}
}

func (c *CrossRef) Name() string { return "crossref" }

var jatsTag = regexp.MustCompile(`<[^>]+>`)

// FetchAbstract looks up a work by DOI and returns its abstract with JATS
// tags removed and whitespace collapsed.
func (c *CrossRef) FetchAbstract(ctx context.Context, doi string) (string, error) {
	u := fmt.Sprintf("%s/works/%s", CrossRefBaseURL, url.PathEscape(doi))
	if c.Email != "" {
		u += "?mailto=" + url.QueryEscape(c.Email)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building crossref request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("crossref request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("crossref returned status %d", resp.StatusCode)
	}

	var body struct {
		Message struct {
			Abstract json.RawMessage `json:"abstract"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", ErrNotFound
	}
	raw := decodeAbstract(body.Message.Abstract)
	text := strings.Join(strings.Fields(jatsTag.ReplaceAllString(raw, " ")), " ")
	if text == "" {
		return "", ErrNotFound
	}
	return text, nil
}

// decodeAbstract accepts the two shapes CrossRef returns for the abstract
// field: a single string, or a list of string fragments.
func decodeAbstract(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, " ")
	}
	return ""
}
