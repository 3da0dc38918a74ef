// Copyright Caddis Lab, 2026. All rights reserved.

// Package normalize maps provider-specific bibliographic entries into
// canonical Records. All functions are pure; no network calls.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// ErrNoTitle marks an entry that cannot produce a title. Callers drop the
// record and count the skip; a blank row is never emitted.
var ErrNoTitle = errors.New("entry has no usable title")

// doiPrefixes are stripped from DOI values before storage and comparison.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// CleanDOI strips resolver prefixes while preserving the original casing
// for display.
func CleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, p := range doiPrefixes {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			return doi[len(p):]
		}
	}
	return doi
}

// NormalizeDOI returns the lower-cased comparison form of a DOI.
// Two records refer to the same work when their normalized DOIs are equal.
func NormalizeDOI(doi string) string {
	return strings.ToLower(CleanDOI(doi))
}

var yearPattern = regexp.MustCompile(`^(\d{4})`)

// ParseYear extracts the leading 4-digit year from a date string such as
// "2023-05-17" or "2023". Parse failure and out-of-range values return 0,
// the "missing" sentinel — never a default numeric year.
func ParseYear(s string) int {
	m := yearPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	if year < 1900 || year > time.Now().Year()+1 {
		return 0
	}
	return year
}

// authorSeparators are tried in fixed priority order by SplitAuthors;
// on a tie in part count the earlier separator wins.
var authorSeparators = []string{",", ";", " and ", " & "}

// SplitAuthors splits a single joined author string on the separator that
// yields the most parts. This reproduces the legacy export heuristic and is
// approximate: it cannot distinguish "Last, First" from two authors joined
// by a comma. Do not build correctness-dependent features on its count.
func SplitAuthors(joined string) []string {
	joined = strings.TrimSpace(joined)
	if joined == "" {
		return nil
	}

	best := []string{joined}
	for _, sep := range authorSeparators {
		if !strings.Contains(joined, sep) {
			continue
		}
		parts := splitTrim(joined, sep)
		if len(parts) > len(best) {
			best = parts
		}
	}
	return best
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseCitations parses a citation count, defaulting to 0 on any failure.
func ParseCitations(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Normalize converts one provider-specific entry into a canonical Record.
// Scopus API entries use Elsevier's dc:/prism: keys; every other provider
// uses the flat export column names. Entries without a title return ErrNoTitle.
func Normalize(entry map[string]string, provider types.Provider) (types.Record, error) {
	if provider == types.ProviderScopus {
		if _, ok := entry["dc:title"]; ok {
			return normalizeScopusAPI(entry)
		}
	}
	return normalizeFlat(entry, provider)
}

// normalizeScopusAPI maps a Scopus search API entry to a Record.
func normalizeScopusAPI(entry map[string]string) (types.Record, error) {
	title := strings.TrimSpace(entry["dc:title"])
	if title == "" {
		return types.Record{}, fmt.Errorf("scopus entry %q: %w", entry["dc:identifier"], ErrNoTitle)
	}

	rec := types.Record{
		Title:          title,
		SourceProvider: types.ProviderScopus,
		DOI:            CleanDOI(entry["prism:doi"]),
		Year:           ParseYear(entry["prism:coverDate"]),
		Authors:        SplitAuthors(entry["dc:creator"]),
		CitationCount:  ParseCitations(entry["citedby-count"]),
		JournalName:    strings.TrimSpace(entry["prism:publicationName"]),
		Publisher:      strings.TrimSpace(entry["prism:publisher"]),
		ISSN:           strings.TrimSpace(entry["prism:issn"]),
		Abstract:       strings.TrimSpace(entry["dc:description"]),
		DocumentType:   strings.TrimSpace(entry["subtypeDescription"]),
		ScopusID:       strings.TrimPrefix(entry["dc:identifier"], "SCOPUS_ID:"),
		EID:            strings.TrimSpace(entry["eid"]),
		QueryDate:      time.Now().Format("2006-01-02 15:04:05"),
	}
	return rec, nil
}

// normalizeFlat maps a flat export row (Publish or Perish and similar) to a Record.
func normalizeFlat(entry map[string]string, provider types.Provider) (types.Record, error) {
	title := strings.TrimSpace(entry["Title"])
	if title == "" {
		return types.Record{}, fmt.Errorf("%s entry: %w", provider, ErrNoTitle)
	}

	rec := types.Record{
		Title:          title,
		SourceProvider: provider,
		DOI:            CleanDOI(entry["DOI"]),
		Year:           ParseYear(entry["Year"]),
		Authors:        SplitAuthors(entry["Authors"]),
		CitationCount:  ParseCitations(entry["Cites"]),
		JournalName:    strings.TrimSpace(entry["Source"]),
		Publisher:      strings.TrimSpace(entry["Publisher"]),
		ISSN:           strings.TrimSpace(entry["ISSN"]),
		Abstract:       strings.TrimSpace(entry["Abstract"]),
		DocumentType:   strings.TrimSpace(entry["Type"]),
		QueryDate:      strings.TrimSpace(entry["QueryDate"]),
	}
	if rec.QueryDate == "" {
		rec.QueryDate = time.Now().Format("2006-01-02 15:04:05")
	}
	return rec, nil
}
