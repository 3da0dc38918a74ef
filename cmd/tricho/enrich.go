// Copyright Caddis Lab, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/caddislab/trichoptera-biblio/internal/cache"
	"github.com/caddislab/trichoptera-biblio/internal/dataset"
	"github.com/caddislab/trichoptera-biblio/internal/enrich"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [abstracts|authors]",
	Short: "Fill missing abstracts or author lists from external providers",
	Long: `Enrich reads a record CSV and fills the chosen field for every record
that is missing it, trying providers in a fixed cascade:

  abstracts: OpenAlex, Semantic Scholar, CrossRef, PubMed
  authors:   OpenAlex

Records that already hold the field are skipped, so rerunning the command
over its own output resumes an interrupted run. Progress is checkpointed
to the output file every --checkpoint-interval records.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("input", "data/processed/combined.csv", "input CSV path")
	enrichCmd.Flags().String("output", "", "output CSV path (default: overwrite the input)")
	enrichCmd.Flags().Int("workers", 4, "concurrent fetchers")
	enrichCmd.Flags().Int("checkpoint-interval", 50, "records between checkpoint saves")
	enrichCmd.Flags().Int("max-retries", 3, "attempts per provider for transient errors")
	enrichCmd.Flags().Duration("request-interval", 200*time.Millisecond, "minimum delay between requests to one provider")
	enrichCmd.Flags().String("cache", "data/cache/lookups.db", "SQLite lookup cache path (empty disables)")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	task := enrich.Task(args[0])
	if task != enrich.TaskAbstracts && task != enrich.TaskAuthors {
		return fmt.Errorf("unknown enrichment task %q (want abstracts or authors)", args[0])
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = input
	}
	workers, _ := cmd.Flags().GetInt("workers")
	interval, _ := cmd.Flags().GetInt("checkpoint-interval")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	requestInterval, _ := cmd.Flags().GetDuration("request-interval")
	cachePath, _ := cmd.Flags().GetString("cache")

	loaded, err := dataset.Load(input)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}

	cascade := &enrich.Cascade{
		MaxRetries:      maxRetries,
		RequestInterval: requestInterval,
	}
	email := secretDefault("openalex-email", "")
	openAlex := enrich.NewOpenAlex(email, defaultTimeout)
	cascade.Abstracts = []enrich.AbstractSource{
		openAlex,
		enrich.NewSemanticScholar(secretDefault("semantic-scholar-api-key", ""), defaultTimeout),
		enrich.NewCrossRef(email, defaultTimeout),
		enrich.NewPubMed(defaultTimeout),
	}
	cascade.Authors = []enrich.AuthorSource{openAlex}

	if cachePath != "" {
		store, err := cache.Open(cachePath)
		if err != nil {
			return fmt.Errorf("opening lookup cache: %w", err)
		}
		defer store.Close()
		cascade.Cache = store
	}

	cfg := enrich.BatchConfig{
		Workers:            workers,
		CheckpointInterval: interval,
		Checkpoint: func(records []types.Record) error {
			return dataset.Save(records, output)
		},
	}
	result, err := enrich.RunBatch(cmd.Context(), cascade, loaded.Records, task, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if err := dataset.Save(loaded.Records, output); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	summary := dataset.NewRunSummary("enrich-" + string(task))
	summary.Input = input
	summary.Output = output
	summary.Counts["filled"] = result.Filled
	summary.Counts["skipped"] = result.Skipped
	summary.Counts["exhausted"] = result.Exhausted
	summary.BySource = result.FilledBySource
	if err := dataset.WriteSummary(summary, output+".summary.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: writing run summary: %v\n", err)
	}

	fmt.Printf("enriched %s: %d filled, %d skipped, %d exhausted (%.1f%% coverage)\n",
		task, result.Filled, result.Skipped, result.Exhausted, 100*result.Coverage())
	for source, n := range result.FilledBySource {
		fmt.Printf("  %s: %d\n", source, n)
	}
	return nil
}
