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

var overlapCmd = &cobra.Command{
	Use:   "overlap <a.csv> <b.csv>",
	Short: "Compare the coverage of two provider collections",
	Long: `Overlap matches the records of two collections, first by normalized
DOI and then greedily by title similarity, and reports how much of each
collection the other covers. Matched pairs are written as a CSV for
manual inspection.`,
	Args: cobra.ExactArgs(2),
	RunE: runOverlap,
}

func init() {
	overlapCmd.Flags().Float64("threshold", dedup.DefaultTitleThreshold, "minimum title similarity for a match")
	overlapCmd.Flags().String("output-dir", "analysis", "directory for the matches CSV")
	overlapCmd.Flags().String("a-name", "scopus", "label for the first collection")
	overlapCmd.Flags().String("b-name", "google_scholar", "label for the second collection")

	rootCmd.AddCommand(overlapCmd)
}

func runOverlap(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	aName, _ := cmd.Flags().GetString("a-name")
	bName, _ := cmd.Flags().GetString("b-name")

	a, err := dataset.Load(args[0])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}
	b, err := dataset.Load(args[1])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[1], err)
	}

	_, err = report.RQ1(aName, a.Records, bName, b.Records, threshold, outputDir, os.Stdout)
	return err
}
