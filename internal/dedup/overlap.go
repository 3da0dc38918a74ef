// Copyright Caddis Lab, 2026. All rights reserved.

package dedup

import (
	"github.com/caddislab/trichoptera-biblio/internal/normalize"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// MatchType distinguishes how two records were identified as the same paper.
type MatchType string

const (
	MatchDOI   MatchType = "DOI"
	MatchTitle MatchType = "Title"
)

// DefaultTitleThreshold is the minimum similarity for a title match.
const DefaultTitleThreshold = 0.85

// Match pairs one record from each collection with the match evidence.
type Match struct {
	Type       MatchType
	AIndex     int
	BIndex     int
	Similarity float64
}

// OverlapResult holds the matches between two collections and the records
// unique to each side, all as indices into the input slices.
type OverlapResult struct {
	Matches []Match
	AOnly   []int
	BOnly   []int
}

// FindOverlaps computes which records in two distinct-provider collections
// represent the same paper. The DOI pass matches normalized DOIs exactly
// (similarity 1.0); the title pass then greedily assigns each remaining A
// record its best-scoring B candidate above threshold. Greedy first-come
// assignment is an accepted approximation: it is reproducible, not a
// globally optimal pairing. A threshold <= 0 uses DefaultTitleThreshold.
func FindOverlaps(a, b []types.Record, threshold float64) OverlapResult {
	if threshold <= 0 {
		threshold = DefaultTitleThreshold
	}

	matchedA := make(map[int]bool)
	matchedB := make(map[int]bool)
	var result OverlapResult

	// DOI pass. First occurrence of each normalized DOI represents a
	// collection; later duplicates stay unmatched for the title pass.
	bByDOI := make(map[string]int)
	for j := len(b) - 1; j >= 0; j-- {
		if doi := normalize.NormalizeDOI(b[j].DOI); doi != "" {
			bByDOI[doi] = j
		}
	}
	for i, rec := range a {
		doi := normalize.NormalizeDOI(rec.DOI)
		if doi == "" {
			continue
		}
		j, ok := bByDOI[doi]
		if !ok || matchedA[i] || matchedB[j] {
			continue
		}
		result.Matches = append(result.Matches, Match{
			Type: MatchDOI, AIndex: i, BIndex: j, Similarity: 1.0,
		})
		matchedA[i] = true
		matchedB[j] = true
	}

	// Title pass over the unmatched remainder. Normalized titles are
	// precomputed; empty titles are excluded from consideration.
	bTitles := make([]string, len(b))
	for j := range b {
		bTitles[j] = matchTitle(b[j].Title)
	}

	for i, rec := range a {
		if matchedA[i] {
			continue
		}
		aTitle := matchTitle(rec.Title)
		if aTitle == "" {
			continue
		}

		bestJ := -1
		bestSim := threshold
		for j := range b {
			if matchedB[j] || bTitles[j] == "" {
				continue
			}
			if sim := Similarity(aTitle, bTitles[j]); sim > bestSim {
				bestSim = sim
				bestJ = j
			}
		}
		if bestJ < 0 {
			continue
		}
		result.Matches = append(result.Matches, Match{
			Type: MatchTitle, AIndex: i, BIndex: bestJ, Similarity: bestSim,
		})
		matchedA[i] = true
		matchedB[bestJ] = true
	}

	for i := range a {
		if !matchedA[i] {
			result.AOnly = append(result.AOnly, i)
		}
	}
	for j := range b {
		if !matchedB[j] {
			result.BOnly = append(result.BOnly, j)
		}
	}
	return result
}
