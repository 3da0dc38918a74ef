// Copyright Caddis Lab, 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// ThematicEvolution holds the RQ3 theme-by-period matrix.
type ThematicEvolution struct {
	// Periods are the bucket start years, ascending. A period labeled
	// 2000 with width 4 covers 2000-2003.
	Periods     []int
	PeriodYears int

	// Counts maps theme -> period start year -> papers.
	Counts map[string]map[int]int

	// Totals maps period start year -> papers with any theme.
	Totals map[int]int
}

// Share returns a theme's fraction of themed output in one period.
func (te ThematicEvolution) Share(theme string, period int) float64 {
	if te.Totals[period] == 0 {
		return 0
	}
	return float64(te.Counts[theme][period]) / float64(te.Totals[period])
}

// Trend reports the share change of a theme between the first and last
// period, in percentage points. Positive means emerging.
func (te ThematicEvolution) Trend(theme string) float64 {
	if len(te.Periods) < 2 {
		return 0
	}
	first := te.Periods[0]
	last := te.Periods[len(te.Periods)-1]
	return 100 * (te.Share(theme, last) - te.Share(theme, first))
}

// RQ3 buckets classified records into fixed-width year periods and
// tracks how each research theme's share moves across them. Records
// without a year or theme are left out of the matrix.
func RQ3(records []types.Record, periodYears int, outputDir string, w io.Writer) (ThematicEvolution, error) {
	if periodYears <= 0 {
		periodYears = defaultPeriodYears
	}
	te := ThematicEvolution{
		PeriodYears: periodYears,
		Counts:      make(map[string]map[int]int),
		Totals:      make(map[int]int),
	}

	minYear, maxYear, ok := yearRange(records)
	if !ok {
		fmt.Fprintf(w, "RQ3: no records carry a usable year\n")
		return te, nil
	}
	firstPeriod := minYear - (minYear % periodYears)
	for p := firstPeriod; p <= maxYear; p += periodYears {
		te.Periods = append(te.Periods, p)
	}

	for _, r := range records {
		if r.Year == 0 || r.Theme == "" || r.Theme == types.ThemeNotSpecified {
			continue
		}
		period := r.Year - (r.Year % periodYears)
		theme := string(r.Theme)
		if te.Counts[theme] == nil {
			te.Counts[theme] = make(map[int]int)
		}
		te.Counts[theme][period]++
		te.Totals[period]++
	}

	fmt.Fprintf(w, "RQ3: thematic evolution (%d-year periods, %d-%d)\n", periodYears, minYear, maxYear)
	themes := make(map[string]int)
	for theme, periods := range te.Counts {
		for _, n := range periods {
			themes[theme] += n
		}
	}
	for _, theme := range sortedKeys(themes) {
		trend := te.Trend(theme)
		direction := "stable"
		switch {
		case trend >= 5:
			direction = "emerging"
		case trend <= -5:
			direction = "declining"
		}
		fmt.Fprintf(w, "  %-28s %5d papers, %+.1f pp (%s)\n", theme, themes[theme], trend, direction)
	}

	if outputDir == "" {
		return te, nil
	}

	header := []string{"theme"}
	for _, p := range te.Periods {
		header = append(header, fmt.Sprintf("%d-%d", p, p+periodYears-1))
	}
	rows := [][]string{header}
	for _, theme := range sortedKeys(themes) {
		row := []string{theme}
		for _, p := range te.Periods {
			row = append(row, strconv.Itoa(te.Counts[theme][p]))
		}
		rows = append(rows, row)
	}
	path := filepath.Join(outputDir, "rq3_themes.csv")
	if err := writeCSV(path, rows); err != nil {
		return te, err
	}
	fmt.Fprintf(w, "  wrote %s\n", path)
	return te, nil
}
