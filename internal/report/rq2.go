// Copyright Caddis Lab, 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// TemporalGeographic holds the RQ2 aggregates.
type TemporalGeographic struct {
	PerYear     map[int]int
	PerRegion   map[string]int
	PerCountry  map[string]int
	MissingYear int
	FirstYear   int
	LastYear    int
}

// RQ2 aggregates publication activity over time and space. Records with
// year 0 are excluded from the temporal series and reported separately,
// never folded into a real year.
func RQ2(records []types.Record, outputDir string, w io.Writer) (TemporalGeographic, error) {
	tg := TemporalGeographic{
		PerYear:    make(map[int]int),
		PerRegion:  make(map[string]int),
		PerCountry: make(map[string]int),
	}
	for _, r := range records {
		if r.Year == 0 {
			tg.MissingYear++
		} else {
			tg.PerYear[r.Year]++
		}
		if r.Region != "" {
			tg.PerRegion[string(r.Region)]++
		}
		if r.Country != "" {
			tg.PerCountry[r.Country]++
		}
	}
	tg.FirstYear, tg.LastYear, _ = yearRange(records)

	fmt.Fprintf(w, "RQ2: temporal and geographic distribution\n")
	fmt.Fprintf(w, "  records: %d (%d without a usable year)\n", len(records), tg.MissingYear)
	if tg.FirstYear != 0 {
		fmt.Fprintf(w, "  span: %d-%d\n", tg.FirstYear, tg.LastYear)
		fmt.Fprintf(w, "  growth: %.1fx between first and last decade\n", tg.decadeGrowth())
	}
	fmt.Fprintf(w, "  regions:\n")
	for _, region := range sortedKeys(tg.PerRegion) {
		fmt.Fprintf(w, "    %-18s %5d (%.1f%%)\n", region, tg.PerRegion[region],
			percent(tg.PerRegion[region], len(records)))
	}
	fmt.Fprintf(w, "  top countries:\n")
	for i, country := range sortedKeys(tg.PerCountry) {
		if i >= 10 {
			break
		}
		fmt.Fprintf(w, "    %-18s %5d\n", country, tg.PerCountry[country])
	}

	if outputDir == "" {
		return tg, nil
	}

	yearRows := [][]string{{"year", "papers"}}
	for y := tg.FirstYear; y <= tg.LastYear && tg.FirstYear != 0; y++ {
		yearRows = append(yearRows, []string{strconv.Itoa(y), strconv.Itoa(tg.PerYear[y])})
	}
	if err := writeCSV(filepath.Join(outputDir, "rq2_per_year.csv"), yearRows); err != nil {
		return tg, err
	}

	regionRows := [][]string{{"region", "papers", "percent"}}
	for _, region := range sortedKeys(tg.PerRegion) {
		regionRows = append(regionRows, []string{
			region,
			strconv.Itoa(tg.PerRegion[region]),
			fmt.Sprintf("%.1f", percent(tg.PerRegion[region], len(records))),
		})
	}
	if err := writeCSV(filepath.Join(outputDir, "rq2_regions.csv"), regionRows); err != nil {
		return tg, err
	}
	fmt.Fprintf(w, "  wrote %s\n", filepath.Join(outputDir, "rq2_per_year.csv"))
	return tg, nil
}

// decadeGrowth compares output in the first and last full decades of the
// series as a coarse growth signal.
func (tg TemporalGeographic) decadeGrowth() float64 {
	if tg.FirstYear == 0 || tg.LastYear-tg.FirstYear < 10 {
		return 1
	}
	first, last := 0, 0
	for y, n := range tg.PerYear {
		if y < tg.FirstYear+10 {
			first += n
		}
		if y > tg.LastYear-10 {
			last += n
		}
	}
	if first == 0 {
		return 1
	}
	return float64(last) / float64(first)
}
