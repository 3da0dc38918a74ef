// Copyright Caddis Lab, 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// Collaboration holds the RQ4 authorship aggregates.
type Collaboration struct {
	WithAuthors  int
	SingleAuthor int
	MultiAuthor  int

	// Distribution maps author count -> papers.
	Distribution map[int]int

	// MeanAuthors is the average team size over papers with author data.
	MeanAuthors float64

	// International counts multi-author papers whose affiliations span
	// more than one distinct institution string.
	International int
}

// MultiAuthorShare returns the fraction of papers with more than one author.
func (c Collaboration) MultiAuthorShare() float64 {
	if c.WithAuthors == 0 {
		return 0
	}
	return float64(c.MultiAuthor) / float64(c.WithAuthors)
}

// authorCount prefers the enriched full author list over the provider's
// possibly truncated one.
func authorCount(r types.Record) int {
	if len(r.AllAuthors) > 0 {
		return len(r.AllAuthors)
	}
	return len(r.Authors)
}

// RQ4 analyzes collaboration patterns: team sizes and the single- versus
// multi-author split. Records without any author data are excluded.
func RQ4(records []types.Record, outputDir string, w io.Writer) (Collaboration, error) {
	col := Collaboration{Distribution: make(map[int]int)}
	totalAuthors := 0
	for _, r := range records {
		n := authorCount(r)
		if n == 0 {
			continue
		}
		col.WithAuthors++
		col.Distribution[n]++
		totalAuthors += n
		if n == 1 {
			col.SingleAuthor++
			continue
		}
		col.MultiAuthor++
		if distinctAffiliations(r) > 1 {
			col.International++
		}
	}
	if col.WithAuthors > 0 {
		col.MeanAuthors = float64(totalAuthors) / float64(col.WithAuthors)
	}

	fmt.Fprintf(w, "RQ4: collaboration patterns\n")
	fmt.Fprintf(w, "  papers with author data: %d of %d\n", col.WithAuthors, len(records))
	fmt.Fprintf(w, "  single-author: %d (%.1f%%), multi-author: %d (%.1f%%)\n",
		col.SingleAuthor, percent(col.SingleAuthor, col.WithAuthors),
		col.MultiAuthor, percent(col.MultiAuthor, col.WithAuthors))
	fmt.Fprintf(w, "  mean team size: %.2f\n", col.MeanAuthors)
	fmt.Fprintf(w, "  multi-institution collaborations: %d\n", col.International)

	if outputDir == "" {
		return col, nil
	}

	maxN := 0
	for n := range col.Distribution {
		if n > maxN {
			maxN = n
		}
	}
	rows := [][]string{{"authors", "papers"}}
	for n := 1; n <= maxN; n++ {
		rows = append(rows, []string{strconv.Itoa(n), strconv.Itoa(col.Distribution[n])})
	}
	path := filepath.Join(outputDir, "rq4_team_sizes.csv")
	if err := writeCSV(path, rows); err != nil {
		return col, err
	}
	fmt.Fprintf(w, "  wrote %s\n", path)
	return col, nil
}

// distinctAffiliations counts unique non-empty affiliation strings.
func distinctAffiliations(r types.Record) int {
	seen := make(map[string]bool)
	for _, a := range r.Affiliations {
		if a != "" {
			seen[a] = true
		}
	}
	return len(seen)
}
