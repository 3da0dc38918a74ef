// Copyright Caddis Lab, 2026. All rights reserved.

package report

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caddislab/trichoptera-biblio/internal/dedup"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rows
}

func TestRQ1Coverage(t *testing.T) {
	a := []types.Record{
		{Title: "Shared by DOI", DOI: "10.1/shared"},
		{Title: "Shared by title wording"},
		{Title: "Hydropsyche net architecture", DOI: "10.1/a-only"},
	}
	b := []types.Record{
		{Title: "A different title entirely", DOI: "10.1/SHARED"},
		{Title: "Shared by Title Wording"},
		{Title: "Glacial refugia of alpine stoneflies"},
	}

	outDir := t.TempDir()
	var buf strings.Builder
	cov, err := RQ1("scopus", a, "google_scholar", b, 0.85, outDir, &buf)
	if err != nil {
		t.Fatalf("RQ1() error = %v", err)
	}
	if cov.Matched != 2 || cov.ByDOI != 1 || cov.ByTitle != 1 {
		t.Errorf("coverage = %+v, want 1 DOI match and 1 title match", cov)
	}
	if cov.AOnly != 1 || cov.BOnly != 1 {
		t.Errorf("AOnly = %d, BOnly = %d, want 1 and 1", cov.AOnly, cov.BOnly)
	}
	if !almostEqual(cov.ADOIShare, 2.0/3.0) {
		t.Errorf("ADOIShare = %v", cov.ADOIShare)
	}

	rows := readCSV(t, filepath.Join(outDir, "rq1_matches.csv"))
	if len(rows) != 3 {
		t.Fatalf("matches CSV has %d rows, want header + 2", len(rows))
	}
	if rows[1][0] != string(dedup.MatchDOI) {
		t.Errorf("first match type = %q, want DOI matches listed first", rows[1][0])
	}
}

func TestRQ2ExcludesSentinelYears(t *testing.T) {
	records := []types.Record{
		{Title: "a", Year: 2000, Region: types.RegionPalearctic, Country: "Poland"},
		{Title: "b", Year: 2000, Region: types.RegionPalearctic, Country: "Poland"},
		{Title: "c", Year: 2015, Region: types.RegionNeotropical, Country: "Brazil"},
		{Title: "d", Year: 0},
	}

	outDir := t.TempDir()
	tg, err := RQ2(records, outDir, io.Discard)
	if err != nil {
		t.Fatalf("RQ2() error = %v", err)
	}
	if tg.MissingYear != 1 {
		t.Errorf("MissingYear = %d, want 1", tg.MissingYear)
	}
	if tg.PerYear[0] != 0 {
		t.Error("sentinel year 0 leaked into the temporal series")
	}
	if tg.FirstYear != 2000 || tg.LastYear != 2015 {
		t.Errorf("span = %d-%d", tg.FirstYear, tg.LastYear)
	}
	if tg.PerRegion["Palearctic"] != 2 {
		t.Errorf("PerRegion = %v", tg.PerRegion)
	}

	rows := readCSV(t, filepath.Join(outDir, "rq2_per_year.csv"))
	// Header plus one row per year in span, including zero years.
	if len(rows) != 1+16 {
		t.Errorf("per-year CSV has %d rows, want 17", len(rows))
	}
}

func TestRQ3ThemeShares(t *testing.T) {
	var records []types.Record
	// Early period: taxonomy dominates. Late period: biomonitoring does.
	for i := 0; i < 8; i++ {
		records = append(records, types.Record{Title: "t", Year: 2000, Theme: types.ThemeTaxonomy})
	}
	for i := 0; i < 2; i++ {
		records = append(records, types.Record{Title: "t", Year: 2000, Theme: types.ThemeBiomonitoring})
	}
	for i := 0; i < 3; i++ {
		records = append(records, types.Record{Title: "t", Year: 2020, Theme: types.ThemeTaxonomy})
	}
	for i := 0; i < 7; i++ {
		records = append(records, types.Record{Title: "t", Year: 2020, Theme: types.ThemeBiomonitoring})
	}
	records = append(records, types.Record{Title: "unthemed", Year: 2020})

	te, err := RQ3(records, 4, "", io.Discard)
	if err != nil {
		t.Fatalf("RQ3() error = %v", err)
	}
	if !almostEqual(te.Share(string(types.ThemeTaxonomy), 2000), 0.8) {
		t.Errorf("taxonomy share in 2000 = %v, want 0.8", te.Share(string(types.ThemeTaxonomy), 2000))
	}
	if trend := te.Trend(string(types.ThemeBiomonitoring)); trend <= 0 {
		t.Errorf("biomonitoring trend = %v, want emerging", trend)
	}
	if trend := te.Trend(string(types.ThemeTaxonomy)); trend >= 0 {
		t.Errorf("taxonomy trend = %v, want declining", trend)
	}
}

func TestRQ3PeriodBuckets(t *testing.T) {
	records := []types.Record{
		{Title: "a", Year: 2001, Theme: types.ThemeEcology},
		{Title: "b", Year: 2003, Theme: types.ThemeEcology},
		{Title: "c", Year: 2004, Theme: types.ThemeEcology},
	}
	te, err := RQ3(records, 4, "", io.Discard)
	if err != nil {
		t.Fatalf("RQ3() error = %v", err)
	}
	// 2001 and 2003 share the 2000-2003 bucket; 2004 starts the next.
	if te.Counts["Ecology/Behavior"][2000] != 2 || te.Counts["Ecology/Behavior"][2004] != 1 {
		t.Errorf("Counts = %v", te.Counts)
	}
}

func TestRQ4Collaboration(t *testing.T) {
	records := []types.Record{
		{Title: "solo", Authors: []string{"One Author"}},
		{Title: "pair", AllAuthors: []string{"A", "B"}, Affiliations: []string{"Univ X", "Univ Y"}},
		{Title: "same lab", AllAuthors: []string{"C", "D", "E"}, Affiliations: []string{"Univ Z", "Univ Z", "Univ Z"}},
		{Title: "no authors at all"},
	}

	outDir := t.TempDir()
	col, err := RQ4(records, outDir, io.Discard)
	if err != nil {
		t.Fatalf("RQ4() error = %v", err)
	}
	if col.WithAuthors != 3 || col.SingleAuthor != 1 || col.MultiAuthor != 2 {
		t.Errorf("collaboration = %+v", col)
	}
	if col.International != 1 {
		t.Errorf("International = %d, want 1 (the same-lab paper spans one institution)", col.International)
	}
	if !almostEqual(col.MeanAuthors, 2.0) {
		t.Errorf("MeanAuthors = %v, want 2.0", col.MeanAuthors)
	}
	if !almostEqual(col.MultiAuthorShare(), 2.0/3.0) {
		t.Errorf("MultiAuthorShare() = %v", col.MultiAuthorShare())
	}

	rows := readCSV(t, filepath.Join(outDir, "rq4_team_sizes.csv"))
	if len(rows) != 4 { // header + sizes 1..3
		t.Errorf("team size CSV has %d rows, want 4", len(rows))
	}
}

// The enriched author list wins over the provider's truncated one.
func TestAuthorCountPrefersEnrichedList(t *testing.T) {
	r := types.Record{
		Authors:    []string{"First Author only"},
		AllAuthors: []string{"A", "B", "C", "D"},
	}
	if got := authorCount(r); got != 4 {
		t.Errorf("authorCount() = %d, want 4", got)
	}
}
