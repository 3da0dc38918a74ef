// Copyright Caddis Lab, 2026. All rights reserved.

// Package dataset reads and writes the tabular record artifacts: raw
// per-period exports, combined collections, enrichment checkpoints, and
// the final coded dataset. One CSV row per record.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// Column order of the persisted artifacts. Loaders accept any column
// order; headers outside this set are flagged, not silently carried.
var columns = []string{
	"Provider",
	"Cites",
	"Authors",
	"Title",
	"Year",
	"Source",
	"Publisher",
	"Type",
	"DOI",
	"ISSN",
	"Abstract",
	"All_Authors",
	"Author_Count_Actual",
	"Author_Affiliations",
	"Country",
	"Region_Global",
	"Research_Theme",
	"Trichoptera_Relevance",
	"ScopusID",
	"EID",
	"QueryDate",
}

var recognized = func() map[string]bool {
	m := make(map[string]bool, len(columns))
	for _, c := range columns {
		m[c] = true
	}
	return m
}()

// Joined-list separators, matching the original export format.
const (
	authorsSep      = ", "
	allAuthorsSep   = "; "
	affiliationsSep = " | "
)

// LoadResult holds the loaded collection plus load observability counters.
type LoadResult struct {
	Records []types.Record

	// SkippedNoTitle counts rows dropped for lacking a usable title.
	SkippedNoTitle int

	// UnknownColumns lists headers outside the recognized set. Their
	// values are not carried into Records.
	UnknownColumns []string
}

// Load reads a record CSV from path.
func Load(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file, no header row", path)
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	var result LoadResult
	for i, name := range header {
		name = strings.TrimSpace(name)
		idx[name] = i
		if !recognized[name] {
			result.UnknownColumns = append(result.UnknownColumns, name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for _, row := range rows[1:] {
		title := strings.TrimSpace(field(row, "Title"))
		if title == "" {
			result.SkippedNoTitle++
			continue
		}

		rec := types.Record{
			Title:          title,
			SourceProvider: types.Provider(field(row, "Provider")),
			DOI:            field(row, "DOI"),
			Year:           atoiOrZero(field(row, "Year")),
			CitationCount:  atoiOrZero(field(row, "Cites")),
			Authors:        splitList(field(row, "Authors"), authorsSep),
			AllAuthors:     splitList(field(row, "All_Authors"), allAuthorsSep),
			Affiliations:   splitList(field(row, "Author_Affiliations"), affiliationsSep),
			JournalName:    field(row, "Source"),
			Publisher:      field(row, "Publisher"),
			DocumentType:   field(row, "Type"),
			ISSN:           field(row, "ISSN"),
			Abstract:       field(row, "Abstract"),
			Country:        field(row, "Country"),
			Region:         types.Region(field(row, "Region_Global")),
			Theme:          types.Theme(field(row, "Research_Theme")),
			Relevance:      types.Relevance(field(row, "Trichoptera_Relevance")),
			ScopusID:       field(row, "ScopusID"),
			EID:            field(row, "EID"),
			QueryDate:      field(row, "QueryDate"),
		}
		result.Records = append(result.Records, rec)
	}

	return &result, nil
}

// Save writes the collection to path atomically: the CSV is written to a
// temporary file in the destination directory and renamed into place, so
// an interrupted save never leaves a truncated checkpoint behind.
func Save(records []types.Record, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(columns)
	if writeErr == nil {
		for _, rec := range records {
			if writeErr = w.Write(row(rec)); writeErr != nil {
				break
			}
		}
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	closeErr := tmp.Close()

	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func row(r types.Record) []string {
	year := ""
	if r.Year != 0 {
		year = strconv.Itoa(r.Year)
	}
	authorCount := ""
	if len(r.AllAuthors) > 0 {
		authorCount = strconv.Itoa(len(r.AllAuthors))
	}
	return []string{
		string(r.SourceProvider),
		strconv.Itoa(r.CitationCount),
		strings.Join(r.Authors, authorsSep),
		r.Title,
		year,
		r.JournalName,
		r.Publisher,
		r.DocumentType,
		r.DOI,
		r.ISSN,
		r.Abstract,
		strings.Join(r.AllAuthors, allAuthorsSep),
		authorCount,
		strings.Join(r.Affiliations, affiliationsSep),
		r.Country,
		string(r.Region),
		string(r.Theme),
		string(r.Relevance),
		r.ScopusID,
		r.EID,
		r.QueryDate,
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func splitList(s, sep string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
