// Copyright Caddis Lab, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caddislab/trichoptera-biblio/internal/classify"
	"github.com/caddislab/trichoptera-biblio/internal/dataset"
	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Code records with country, region, theme, and relevance",
	Long: `Classify sends each record's title and abstract to a chat-completion
model and stores the returned country, biogeographic region, research
theme, and Trichoptera relevance. Answers outside the closed category
sets are coerced to "Not Specified".

Records already carrying a theme and relevance are skipped, so rerunning
over the output file resumes an interrupted run. An OpenAI API key is
required, from --api-key, the openai-api-key secret, or OPENAI_API_KEY.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("input", "data/processed/combined.csv", "input CSV path")
	classifyCmd.Flags().String("output", "", "output CSV path (default: overwrite the input)")
	classifyCmd.Flags().String("model", "gpt-4o-mini", "chat model identifier")
	classifyCmd.Flags().String("api-key", "", "OpenAI API key (overrides secrets)")
	classifyCmd.Flags().Int("max-retries", 3, "attempts per record for transient errors")
	classifyCmd.Flags().Int("checkpoint-interval", 50, "records between checkpoint saves")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = secretDefault("openai-api-key", apiKey)
	if apiKey == "" {
		return fmt.Errorf("openAI API key is required (set --api-key, .secrets/openai-api-key, or OPENAI_API_KEY)")
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = input
	}
	model, _ := cmd.Flags().GetString("model")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	interval, _ := cmd.Flags().GetInt("checkpoint-interval")

	loaded, err := dataset.Load(input)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}

	cfg := types.ClassifyConfig{
		Model:              model,
		APIKey:             apiKey,
		MaxRetries:         maxRetries,
		CheckpointInterval: interval,
	}
	backend := &classify.OpenAIBackend{APIKey: apiKey, Model: model}
	checkpoint := func(records []types.Record) error {
		return dataset.Save(records, output)
	}

	summary, err := classify.CodeAll(cmd.Context(), backend, loaded.Records, cfg, checkpoint, os.Stdout)
	if err != nil {
		return err
	}
	if err := dataset.Save(loaded.Records, output); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	runSummary := dataset.NewRunSummary("classify")
	runSummary.Input = input
	runSummary.Output = output
	runSummary.Counts["coded"] = summary.Coded
	runSummary.Counts["skipped"] = summary.Skipped
	runSummary.Counts["failed"] = summary.Failed
	runSummary.Counts["invalid"] = summary.Invalid
	if err := dataset.WriteSummary(runSummary, output+".summary.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: writing run summary: %v\n", err)
	}

	fmt.Printf("classified %d records (%d skipped, %d failed, %d invalid answers coerced), wrote %s\n",
		summary.Coded, summary.Skipped, summary.Failed, summary.Invalid, output)
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) failed classification", summary.Failed)
	}
	return nil
}
