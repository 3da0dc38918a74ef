// Copyright Caddis Lab, 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/caddislab/trichoptera-biblio/internal/dataset"
	"github.com/caddislab/trichoptera-biblio/internal/dedup"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

var combineCmd = &cobra.Command{
	Use:   "combine [input CSVs...]",
	Short: "Merge provider exports into one deduplicated dataset",
	Long: `Combine concatenates the input CSVs in the order given and removes
duplicates in two passes: first by normalized DOI, then by normalized
title for records without a DOI. Earlier inputs win, so list the most
trusted export first.

With --input-dir, every *.csv in the directory is used as an input in
lexical order (which keeps yearly exports like scopus_2015.csv in year
order), before any files listed as arguments.`,
	RunE: runCombine,
}

func init() {
	combineCmd.Flags().String("input-dir", "", "directory of CSV exports to combine, in lexical order")
	combineCmd.Flags().String("output", "data/processed/combined.csv", "output CSV path")
	combineCmd.Flags().String("provider", "", "override the source provider for all inputs (e.g. google_scholar)")

	rootCmd.AddCommand(combineCmd)
}

func runCombine(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	inputs := args
	if inputDir != "" {
		found, err := filepath.Glob(filepath.Join(inputDir, "*.csv"))
		if err != nil {
			return fmt.Errorf("scanning %s: %w", inputDir, err)
		}
		if len(found) == 0 {
			return fmt.Errorf("no CSV files in %s", inputDir)
		}
		sort.Strings(found)
		// A combined output from an earlier run may live in the same
		// directory; never feed it back in.
		out, _ := cmd.Flags().GetString("output")
		outAbs, _ := filepath.Abs(out)
		inputs = make([]string, 0, len(found)+len(args))
		for _, f := range found {
			if abs, _ := filepath.Abs(f); abs == outAbs {
				continue
			}
			inputs = append(inputs, f)
		}
		inputs = append(inputs, args...)
		if len(inputs) == 0 {
			return fmt.Errorf("no CSV files in %s", inputDir)
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("provide input CSV files or --input-dir")
	}
	output, _ := cmd.Flags().GetString("output")
	provider, _ := cmd.Flags().GetString("provider")

	var collections [][]types.Record
	total := 0
	for _, path := range inputs {
		loaded, err := dataset.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		if loaded.SkippedNoTitle > 0 {
			fmt.Printf("%s: skipped %d rows without a title\n", path, loaded.SkippedNoTitle)
		}
		if len(loaded.UnknownColumns) > 0 {
			fmt.Printf("%s: ignoring unknown columns %v\n", path, loaded.UnknownColumns)
		}
		if provider != "" {
			for i := range loaded.Records {
				loaded.Records[i].SourceProvider = types.Provider(provider)
			}
		}
		fmt.Printf("%s: %d records\n", path, len(loaded.Records))
		total += len(loaded.Records)
		collections = append(collections, loaded.Records)
	}

	result := dedup.Merge(collections...)
	if err := dataset.Save(result.Records, output); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("combined %d records into %d (%d removed by DOI, %d by title), wrote %s\n",
		total, len(result.Records), result.RemovedByDOI, result.RemovedByTitle, output)
	return nil
}
