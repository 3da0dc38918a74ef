// Copyright Caddis Lab, 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/caddislab/trichoptera-biblio/internal/dedup"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// Coverage summarizes how completely two provider collections overlap.
type Coverage struct {
	ATotal, BTotal   int
	Matched          int
	ByDOI, ByTitle   int
	AOnly, BOnly     int
	ADOIShare        float64 // fraction of A records carrying a DOI
	BDOIShare        float64
	AMatchedPercent  float64
	BMatchedPercent  float64
}

// RQ1 compares two collections (typically Scopus against Google Scholar)
// and reports how much of each the other covers. A text summary goes to
// w; the per-match detail is written as CSV under outputDir when it is
// non-empty.
func RQ1(aName string, a []types.Record, bName string, b []types.Record, threshold float64, outputDir string, w io.Writer) (Coverage, error) {
	overlaps := dedup.FindOverlaps(a, b, threshold)

	cov := Coverage{
		ATotal:  len(a),
		BTotal:  len(b),
		Matched: len(overlaps.Matches),
		AOnly:   len(overlaps.AOnly),
		BOnly:   len(overlaps.BOnly),
	}
	for _, m := range overlaps.Matches {
		if m.Type == dedup.MatchDOI {
			cov.ByDOI++
		} else {
			cov.ByTitle++
		}
	}
	cov.ADOIShare = doiShare(a)
	cov.BDOIShare = doiShare(b)
	cov.AMatchedPercent = percent(cov.Matched, cov.ATotal)
	cov.BMatchedPercent = percent(cov.Matched, cov.BTotal)

	fmt.Fprintf(w, "RQ1: provider coverage (%s vs %s)\n", aName, bName)
	fmt.Fprintf(w, "  %s: %d records (%.1f%% with DOI)\n", aName, cov.ATotal, 100*cov.ADOIShare)
	fmt.Fprintf(w, "  %s: %d records (%.1f%% with DOI)\n", bName, cov.BTotal, 100*cov.BDOIShare)
	fmt.Fprintf(w, "  matched: %d (%d by DOI, %d by title)\n", cov.Matched, cov.ByDOI, cov.ByTitle)
	fmt.Fprintf(w, "  %s covers %.1f%% of %s; %s covers %.1f%% of %s\n",
		bName, cov.AMatchedPercent, aName, aName, cov.BMatchedPercent, bName)
	fmt.Fprintf(w, "  only in %s: %d; only in %s: %d\n", aName, cov.AOnly, bName, cov.BOnly)

	if outputDir == "" {
		return cov, nil
	}

	rows := [][]string{{"match_type", "similarity", aName + "_title", bName + "_title", aName + "_doi", bName + "_doi"}}
	for _, m := range overlaps.Matches {
		rows = append(rows, []string{
			string(m.Type),
			fmt.Sprintf("%.3f", m.Similarity),
			a[m.AIndex].Title,
			b[m.BIndex].Title,
			a[m.AIndex].DOI,
			b[m.BIndex].DOI,
		})
	}
	path := filepath.Join(outputDir, "rq1_matches.csv")
	if err := writeCSV(path, rows); err != nil {
		return cov, err
	}
	fmt.Fprintf(w, "  wrote %s\n", path)
	return cov, nil
}

func doiShare(records []types.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if r.DOI != "" {
			n++
		}
	}
	return float64(n) / float64(len(records))
}
