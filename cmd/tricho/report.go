// Copyright Caddis Lab, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caddislab/trichoptera-biblio/internal/dataset"
	"github.com/caddislab/trichoptera-biblio/internal/dedup"
	"github.com/caddislab/trichoptera-biblio/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [rq1|rq2|rq3|rq4]",
	Short: "Run the review analyses over a classified dataset",
	Long: `Report computes one of the four review analyses:

  rq1  provider coverage (requires --compare for the second collection)
  rq2  temporal and geographic distribution
  rq3  thematic evolution across fixed-width periods
  rq4  collaboration patterns

Each analysis prints a text summary and writes CSV artifacts under the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("input", "data/processed/combined.csv", "input CSV path")
	reportCmd.Flags().String("compare", "", "second collection CSV for rq1")
	reportCmd.Flags().String("output-dir", "analysis", "directory for report artifacts")
	reportCmd.Flags().Int("period-years", 4, "period width for rq3")
	reportCmd.Flags().Float64("threshold", dedup.DefaultTitleThreshold, "title similarity threshold for rq1")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	loaded, err := dataset.Load(input)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}

	switch args[0] {
	case "rq1":
		comparePath, _ := cmd.Flags().GetString("compare")
		if comparePath == "" {
			return fmt.Errorf("rq1 requires --compare with the second collection")
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		other, err := dataset.Load(comparePath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", comparePath, err)
		}
		_, err = report.RQ1("scopus", loaded.Records, "google_scholar", other.Records, threshold, outputDir, os.Stdout)
		return err
	case "rq2":
		_, err := report.RQ2(loaded.Records, outputDir, os.Stdout)
		return err
	case "rq3":
		periodYears, _ := cmd.Flags().GetInt("period-years")
		_, err := report.RQ3(loaded.Records, periodYears, outputDir, os.Stdout)
		return err
	case "rq4":
		_, err := report.RQ4(loaded.Records, outputDir, os.Stdout)
		return err
	default:
		return fmt.Errorf("unknown report %q (want rq1, rq2, rq3, or rq4)", args[0])
	}
}
