// Copyright Caddis Lab, 2026. All rights reserved.

// Package dedup combines per-period provider exports into deduplicated
// collections and computes cross-provider overlap for coverage analysis.
package dedup

import (
	"strings"
	"unicode"

	"github.com/caddislab/trichoptera-biblio/internal/normalize"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// MergeResult holds a deduplicated collection and removal counts per pass.
type MergeResult struct {
	Records        []types.Record
	RemovedByDOI   int
	RemovedByTitle int
}

// Removed returns the total number of duplicates dropped.
func (r MergeResult) Removed() int {
	return r.RemovedByDOI + r.RemovedByTitle
}

// Merge concatenates collections in input order and deduplicates the result.
// Pass 1 drops records whose normalized DOI duplicates an earlier record,
// keeping the first occurrence. Pass 2 drops DOI-less records whose
// normalized title duplicates an earlier surviving record's title. A record
// with a DOI is never removed by the title pass, and an empty normalized
// title never matches anything.
//
// Callers must supply collections in a deterministic order (sorted by
// partition key) so reruns reproduce the same first-occurrence choices.
func Merge(collections ...[]types.Record) MergeResult {
	var all []types.Record
	for _, c := range collections {
		all = append(all, c...)
	}

	var result MergeResult

	// Pass 1: DOI exact match.
	seenDOI := make(map[string]bool)
	var survivors []types.Record
	for _, rec := range all {
		doi := normalize.NormalizeDOI(rec.DOI)
		if doi != "" {
			if seenDOI[doi] {
				result.RemovedByDOI++
				continue
			}
			seenDOI[doi] = true
		}
		survivors = append(survivors, rec)
	}

	// Pass 2: normalized title, DOI-less records only.
	seenTitle := make(map[string]bool)
	for _, rec := range survivors {
		key := titleKey(rec.Title)
		if rec.DOI == "" && key != "" && seenTitle[key] {
			result.RemovedByTitle++
			continue
		}
		if key != "" {
			seenTitle[key] = true
		}
		result.Records = append(result.Records, rec)
	}

	return result
}

// titleKey is the merge-pass normalization: lower-cased with whitespace
// collapsed. Punctuation is preserved; the overlap matcher uses the
// stricter matchTitle form instead.
func titleKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// matchTitle is the comparison-pass normalization: lower-cased, all
// non-alphanumeric/non-space runes dropped, whitespace collapsed.
func matchTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
