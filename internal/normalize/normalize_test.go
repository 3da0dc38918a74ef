// Copyright Caddis Lab, 2026. All rights reserved.

package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

func TestCleanDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "10.1016/j.zool.2023.01.001", "10.1016/j.zool.2023.01.001"},
		{"https resolver", "https://doi.org/10.1016/ABC", "10.1016/ABC"},
		{"dx resolver", "http://dx.doi.org/10.1163/Xyz", "10.1163/Xyz"},
		{"doi scheme", "doi:10.5281/zenodo.123", "10.5281/zenodo.123"},
		{"preserves casing", "https://doi.org/10.1016/J.ZOOL", "10.1016/J.ZOOL"},
		{"whitespace", "  10.1/x  ", "10.1/x"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDOI(tt.in); got != tt.want {
				t.Errorf("CleanDOI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDOI(t *testing.T) {
	a := NormalizeDOI("https://doi.org/10.1016/J.ZOOL")
	b := NormalizeDOI("10.1016/j.zool")
	if a != b {
		t.Errorf("normalized DOIs differ: %q vs %q", a, b)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"full date", "2023-05-17", 2023},
		{"year only", "2010", 2010},
		{"garbage", "not a date", 0},
		{"empty", "", 0},
		{"too old", "1850-01-01", 0},
		{"too far future", "2999", 0},
		{"next year allowed", time.Now().AddDate(1, 0, 0).Format("2006"), time.Now().Year() + 1},
		{"multi-token junk", "circa 2005", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseYear(tt.in); got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// SplitAuthors reproduces the legacy max-split heuristic. The counts below
// are approximate by design; they document the heuristic, not a ground truth.
func TestSplitAuthorsApproximate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"semicolons", "Smith J.; Jones K.; Wu L.", []string{"Smith J.", "Jones K.", "Wu L."}},
		{"commas", "Smith J., Jones K.", []string{"Smith J.", "Jones K."}},
		{"and word", "Smith and Jones", []string{"Smith", "Jones"}},
		{"ampersand", "Smith & Jones", []string{"Smith", "Jones"}},
		{"single author", "Smith J.", []string{"Smith J."}},
		{"empty", "", nil},
		// Known imprecision: "Last, First" splits into two parts.
		{"last-first splits", "Smith, John", []string{"Smith", "John"}},
		// Max split wins: three comma parts beat two semicolon parts.
		{"max split wins", "A, B, C; D", []string{"A", "B", "C; D"}},
		// On a tie in part count the comma splits, not the semicolon.
		{"comma wins ties", "Smith J., Jones K.; Wu L.", []string{"Smith J.", "Jones K.; Wu L."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitAuthors(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitAuthors(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitAuthors(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeScopusAPIEntry(t *testing.T) {
	entry := map[string]string{
		"dc:identifier":         "SCOPUS_ID:85123456789",
		"eid":                   "2-s2.0-85123456789",
		"dc:title":              "Silk production in Trichoptera larvae",
		"dc:creator":            "Smith J.; Tanaka H.",
		"prism:coverDate":       "2023-04-01",
		"prism:doi":             "10.1016/j.insect.2023.04.002",
		"citedby-count":         "17",
		"prism:publicationName": "Journal of Insect Science",
		"prism:publisher":       "Elsevier",
		"prism:issn":            "1536-2442",
		"subtypeDescription":    "Article",
	}

	rec, err := Normalize(entry, types.ProviderScopus)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Title != "Silk production in Trichoptera larvae" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Year != 2023 {
		t.Errorf("Year = %d, want 2023", rec.Year)
	}
	if rec.CitationCount != 17 {
		t.Errorf("CitationCount = %d, want 17", rec.CitationCount)
	}
	if len(rec.Authors) != 2 {
		t.Errorf("Authors = %v, want 2 entries", rec.Authors)
	}
	if rec.ScopusID != "85123456789" {
		t.Errorf("ScopusID = %q", rec.ScopusID)
	}
	if rec.SourceProvider != types.ProviderScopus {
		t.Errorf("SourceProvider = %q", rec.SourceProvider)
	}
	if rec.QueryDate == "" {
		t.Error("QueryDate not set")
	}
}

func TestNormalizeFlatEntry(t *testing.T) {
	entry := map[string]string{
		"Title":   "The Ecology of Caddisflies",
		"Authors": "Brown A., Green B.",
		"Year":    "2018",
		"DOI":     "https://doi.org/10.1/eco",
		"Cites":   "42",
		"Source":  "Freshwater Biology",
	}

	rec, err := Normalize(entry, types.ProviderGoogleScholar)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.DOI != "10.1/eco" {
		t.Errorf("DOI = %q, want resolver prefix stripped", rec.DOI)
	}
	if rec.Year != 2018 || rec.CitationCount != 42 {
		t.Errorf("Year/Cites = %d/%d", rec.Year, rec.CitationCount)
	}
	if rec.SourceProvider != types.ProviderGoogleScholar {
		t.Errorf("SourceProvider = %q", rec.SourceProvider)
	}
}

func TestNormalizeMissingTitle(t *testing.T) {
	_, err := Normalize(map[string]string{"DOI": "10.1/x"}, types.ProviderScopus)
	if !errors.Is(err, ErrNoTitle) {
		t.Errorf("err = %v, want ErrNoTitle", err)
	}

	_, err = Normalize(map[string]string{"dc:title": "   ", "dc:identifier": "SCOPUS_ID:1"}, types.ProviderScopus)
	if !errors.Is(err, ErrNoTitle) {
		t.Errorf("err = %v, want ErrNoTitle", err)
	}
}

func TestNormalizeBadNumbersDefault(t *testing.T) {
	entry := map[string]string{
		"Title": "A paper",
		"Year":  "n.d.",
		"Cites": "many",
	}
	rec, err := Normalize(entry, types.ProviderGoogleScholar)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Year != 0 {
		t.Errorf("Year = %d, want 0 (missing sentinel)", rec.Year)
	}
	if rec.CitationCount != 0 {
		t.Errorf("CitationCount = %d, want 0", rec.CitationCount)
	}
}
