// Copyright Caddis Lab, 2026. All rights reserved.

// Package report computes the review's four analyses over a classified
// record set: provider coverage, temporal and geographic trends, thematic
// evolution, and collaboration patterns. Each report writes a plain-text
// summary plus CSV artifacts for downstream plotting.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

const defaultPeriodYears = 4

// writeCSV writes rows to path atomically via a temp file in the same
// directory.
func writeCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// yearRange returns the min and max non-zero years in the set. ok is
// false when no record carries a usable year.
func yearRange(records []types.Record) (min, max int, ok bool) {
	for _, r := range records {
		if r.Year == 0 {
			continue
		}
		if !ok || r.Year < min {
			min = r.Year
		}
		if !ok || r.Year > max {
			max = r.Year
		}
		ok = true
	}
	return min, max, ok
}

// sortedKeys returns map keys in ascending count order, ties broken
// alphabetically, largest first.
func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
