// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PubMedBaseURL is a package-level variable to allow test substitution.
var PubMedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed resolves a DOI to a PMID via esearch, then fetches the article
// XML via efetch. Two round trips per lookup, so it sits last in the
// cascade.
type PubMed struct {
	client *http.Client
}

// NewPubMed returns a PubMed source.
func NewPubMed(timeout time.Duration) *PubMed {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PubMed{client: &http.Client{Timeout: timeout}}
}

func (p *PubMed) Name() string { return "pubmed" }

func (p *PubMed) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building pubmed request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed request: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("pubmed returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// FetchAbstract resolves the DOI to a PMID and extracts the abstract
// sections from the article XML, joined in document order.
func (p *PubMed) FetchAbstract(ctx context.Context, doi string) (string, error) {
	searchURL := fmt.Sprintf("%s/esearch.fcgi?db=pubmed&retmode=json&term=%s",
		PubMedBaseURL, url.QueryEscape(doi+"[doi]"))
	resp, err := p.get(ctx, searchURL)
	if err != nil {
		return "", err
	}
	var search struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	err = json.NewDecoder(resp.Body).Decode(&search)
	resp.Body.Close()
	if err != nil || len(search.ESearchResult.IDList) == 0 {
		return "", ErrNotFound
	}
	pmid := search.ESearchResult.IDList[0]

	fetchURL := fmt.Sprintf("%s/efetch.fcgi?db=pubmed&retmode=xml&id=%s",
		PubMedBaseURL, url.QueryEscape(pmid))
	resp, err = p.get(ctx, fetchURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var article struct {
		Sections []struct {
			Label string `xml:"Label,attr"`
			Text  string `xml:",chardata"`
		} `xml:"PubmedArticle>MedlineCitation>Article>Abstract>AbstractText"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&article); err != nil {
		return "", ErrNotFound
	}
	var parts []string
	for _, s := range article.Sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return "", ErrNotFound
	}
	return strings.Join(parts, " "), nil
}
