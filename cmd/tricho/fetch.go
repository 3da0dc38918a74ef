// Copyright Caddis Lab, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caddislab/trichoptera-biblio/internal/dataset"
	"github.com/caddislab/trichoptera-biblio/internal/dedup"
	"github.com/caddislab/trichoptera-biblio/internal/scopus"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "trichoptera-biblio/0.1"
	defaultQuery     = "TITLE-ABS-KEY(Trichoptera OR caddisfly OR caddisflies)"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch records from the Scopus API",
	Long: `Fetch runs the configured Scopus search, pages through the results
with a server-side cursor, and writes the normalized records to a CSV.
Raw API response pages are archived under the data directory.

Large result sets hit Scopus's per-query cap, so --year or
--start-year/--end-year restrict the query with PUBYEAR filters and
write one export per year; --merge additionally deduplicates the yearly
exports into the --output file. For sub-year windows,
--start-date/--end-date (YYYY-MM-DD) restrict a single query with
PUBYEAR/PUBMONTH filters.

A Scopus API key is required, from --api-key, the scopus-api-key secret,
or SCOPUS_API_KEY.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("query", defaultQuery, "Scopus search expression")
	fetchCmd.Flags().String("api-key", "", "Scopus API key (overrides secrets)")
	fetchCmd.Flags().String("inst-token", "", "Scopus institutional token")
	fetchCmd.Flags().String("view", "standard", "Scopus view: standard or complete")
	fetchCmd.Flags().Duration("page-delay", 500*time.Millisecond, "delay between result pages")
	fetchCmd.Flags().Int("max-results", 0, "cap on fetched records per query (0 = no cap)")
	fetchCmd.Flags().Int("year", 0, "fetch a single publication year")
	fetchCmd.Flags().Int("start-year", 0, "first year of a publication year range")
	fetchCmd.Flags().Int("end-year", 0, "last year of a publication year range")
	fetchCmd.Flags().String("start-date", "", "window start (YYYY-MM-DD), for monthly or quarterly fetches")
	fetchCmd.Flags().String("end-date", "", "window end (YYYY-MM-DD)")
	fetchCmd.Flags().Bool("merge", false, "deduplicate yearly exports into --output")
	fetchCmd.Flags().String("data-dir", "data", "directory for raw response pages")
	fetchCmd.Flags().String("output", "data/processed/scopus.csv", "output CSV path")

	rootCmd.AddCommand(fetchCmd)
}

// fetchYears resolves the year window flags into an explicit year list.
// An empty list means one unwindowed query.
func fetchYears(cmd *cobra.Command) ([]int, error) {
	year, _ := cmd.Flags().GetInt("year")
	start, _ := cmd.Flags().GetInt("start-year")
	end, _ := cmd.Flags().GetInt("end-year")

	if year != 0 {
		if start != 0 || end != 0 {
			return nil, fmt.Errorf("--year cannot be combined with --start-year/--end-year")
		}
		return []int{year}, nil
	}
	if start == 0 && end == 0 {
		return nil, nil
	}
	if start == 0 || end == 0 || end < start {
		return nil, fmt.Errorf("provide both --start-year and --end-year with start <= end")
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years, nil
}

// yearlyPath derives the per-year export path from the merged output
// path: data/processed/scopus.csv -> data/processed/scopus_2015.csv.
func yearlyPath(output string, year int) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + fmt.Sprintf("_%d%s", year, ext)
}

func runFetch(cmd *cobra.Command, args []string) error {
	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = secretDefault("scopus-api-key", apiKey)
	if apiKey == "" {
		return fmt.Errorf("scopus API key is required (set --api-key, .secrets/scopus-api-key, or SCOPUS_API_KEY)")
	}
	instToken, _ := cmd.Flags().GetString("inst-token")
	query, _ := cmd.Flags().GetString("query")
	if !cmd.Flags().Changed("query") {
		if v := viper.GetString("scopus.query"); v != "" {
			query = v
		}
	}
	view, _ := cmd.Flags().GetString("view")
	if !cmd.Flags().Changed("view") {
		if v := viper.GetString("scopus.view"); v != "" {
			view = v
		}
	}
	pageDelay, _ := cmd.Flags().GetDuration("page-delay")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	output, _ := cmd.Flags().GetString("output")
	merge, _ := cmd.Flags().GetBool("merge")

	years, err := fetchYears(cmd)
	if err != nil {
		return err
	}
	startDate, _ := cmd.Flags().GetString("start-date")
	endDate, _ := cmd.Flags().GetString("end-date")
	if (startDate == "") != (endDate == "") {
		return fmt.Errorf("provide both --start-date and --end-date")
	}
	if startDate != "" && len(years) > 0 {
		return fmt.Errorf("date window flags cannot be combined with year flags")
	}

	cfg := types.ScopusConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   defaultTimeout,
			UserAgent: defaultUserAgent,
		},
		APIKey:     apiKey,
		InstToken:  secretDefault("scopus-inst-token", instToken),
		Query:      query,
		View:       view,
		PageDelay:  pageDelay,
		MaxResults: maxResults,
		DataDir:    dataDir,
	}

	summary := dataset.NewRunSummary("fetch")
	summary.Output = output

	if len(years) == 0 {
		if startDate != "" {
			filter, err := scopus.DateFilter(startDate, endDate)
			if err != nil {
				return err
			}
			cfg.Query = fmt.Sprintf("(%s) AND (%s)", query, filter)
			cfg.Window = startDate + "_" + endDate
		}
		client := scopus.NewClient(cfg)
		result, err := client.Fetch(cmd.Context(), os.Stdout)
		if err != nil {
			return err
		}
		if err := dataset.Save(result.Records, output); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		summary.Counts["fetched"] = len(result.Records)
		summary.Counts["pages"] = result.Pages
		summary.Counts["skipped"] = result.SkippedRaw
		if err := dataset.WriteSummary(summary, output+".summary.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing run summary: %v\n", err)
		}
		fmt.Printf("fetched %d records (%d pages, %d skipped), wrote %s\n",
			len(result.Records), result.Pages, result.SkippedRaw, output)
		return nil
	}

	var collections [][]types.Record
	for _, y := range years {
		yearCfg := cfg
		yearCfg.Query = fmt.Sprintf("(%s) AND PUBYEAR IS %d", query, y)
		yearCfg.Window = strconv.Itoa(y)

		client := scopus.NewClient(yearCfg)
		fmt.Printf("fetching %d...\n", y)
		result, err := client.Fetch(cmd.Context(), os.Stdout)
		if err != nil {
			return fmt.Errorf("fetching year %d: %w", y, err)
		}

		path := yearlyPath(output, y)
		if err := dataset.Save(result.Records, path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("%d: %d records, wrote %s\n", y, len(result.Records), path)

		summary.Counts["fetched"] += len(result.Records)
		summary.Counts["pages"] += result.Pages
		summary.Counts["skipped"] += result.SkippedRaw
		collections = append(collections, result.Records)
	}

	if merge {
		merged := dedup.Merge(collections...)
		if err := dataset.Save(merged.Records, output); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		summary.Counts["merged"] = len(merged.Records)
		summary.Counts["removed"] = merged.Removed()
		fmt.Printf("merged %d records into %d (%d duplicates removed), wrote %s\n",
			summary.Counts["fetched"], len(merged.Records), merged.Removed(), output)
	}

	if err := dataset.WriteSummary(summary, output+".summary.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: writing run summary: %v\n", err)
	}
	return nil
}
