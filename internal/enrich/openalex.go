// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// OpenAlexBaseURL is a package-level variable to allow test substitution.
var OpenAlexBaseURL = "https://api.openalex.org"

// OpenAlex queries the OpenAlex works endpoint. OpenAlex stores abstracts
// as an inverted index (word -> positions), which FetchAbstract
// reconstructs into running text. It is also the primary author source:
// authorships carry display names and institution affiliations.
type OpenAlex struct {
	client *http.Client

	// Email joins the polite pool via the mailto parameter when set.
	Email string
}

// NewOpenAlex returns an OpenAlex source. Email is optional.
func NewOpenAlex(email string, timeout time.Duration) *OpenAlex {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAlex{
		client: &http.Client{Timeout: timeout},
		Email:  email,
	}
}

func (o *OpenAlex) Name() string { return "openalex" }

type openAlexWork struct {
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Authorships           []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
		Institutions []struct {
			DisplayName string `json:"display_name"`
		} `json:"institutions"`
	} `json:"authorships"`
}

func (o *OpenAlex) get(ctx context.Context, doi string) (*openAlexWork, error) {
	u := fmt.Sprintf("%s/works/https://doi.org/%s", OpenAlexBaseURL, url.PathEscape(doi))
	if o.Email != "" {
		u += "?mailto=" + url.QueryEscape(o.Email)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building openalex request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openalex request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("openalex returned status %d", resp.StatusCode)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		// A 200 with an undecodable body is treated as absence, not a
		// transient failure: retrying will not change the payload.
		return nil, ErrNotFound
	}
	return &work, nil
}

// FetchAbstract reconstructs the abstract from the inverted index.
func (o *OpenAlex) FetchAbstract(ctx context.Context, doi string) (string, error) {
	work, err := o.get(ctx, doi)
	if err != nil {
		return "", err
	}
	text := reconstructAbstract(work.AbstractInvertedIndex)
	if text == "" {
		return "", ErrNotFound
	}
	return text, nil
}

// FetchAuthors returns the authorship display names with one affiliation
// entry per author; an author's institutions are joined with "; ".
func (o *OpenAlex) FetchAuthors(ctx context.Context, doi string) (AuthorData, error) {
	work, err := o.get(ctx, doi)
	if err != nil {
		return AuthorData{}, err
	}
	var data AuthorData
	for _, a := range work.Authorships {
		if a.Author.DisplayName == "" {
			continue
		}
		data.Authors = append(data.Authors, a.Author.DisplayName)
		var insts []string
		for _, inst := range a.Institutions {
			if inst.DisplayName != "" {
				insts = append(insts, inst.DisplayName)
			}
		}
		data.Affiliations = append(data.Affiliations, strings.Join(insts, "; "))
	}
	if len(data.Authors) == 0 {
		return AuthorData{}, ErrNotFound
	}
	return data, nil
}

// reconstructAbstract flattens an inverted index (word -> zero-based
// positions) back into the original word order.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type placed struct {
		pos  int
		word string
	}
	var words []placed
	for word, positions := range index {
		for _, p := range positions {
			words = append(words, placed{p, word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}
