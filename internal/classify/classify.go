// Copyright Caddis Lab, 2026. All rights reserved.

// Package classify assigns geographic and thematic codes to bibliographic
// records via a chat-completion model, validating every answer against
// the closed vocabularies.
package classify

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// Backend abstracts the chat API so tests can supply a mock.
type Backend interface {
	Code(ctx context.Context, rec types.Record) (Classification, error)
}

// Classification is the raw model answer for one record, before
// validation against the closed sets.
type Classification struct {
	Country   string `json:"country"`
	Region    string `json:"region"`
	Theme     string `json:"research_theme"`
	Relevance string `json:"relevance"`
}

// BatchSummary holds counts from a batch coding run.
type BatchSummary struct {
	Coded   int
	Skipped int
	Failed  int

	// Invalid counts model answers that fell outside a closed set and
	// were coerced to "Not Specified".
	Invalid int
}

// Total returns the number of records considered.
func (s BatchSummary) Total() int {
	return s.Coded + s.Skipped + s.Failed
}

// HasFailures reports whether any records failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

const (
	defaultMaxRetries         = 3
	defaultCheckpointInterval = 50
)

// CodeAll classifies every unclassified record in place. Records already
// carrying a theme and relevance are skipped, so rerunning over a
// partially coded file resumes where it stopped. Per-record failures are
// counted and do not stop the run. Checkpoint, when set, persists the
// records every CheckpointInterval coded records and once at the end.
func CodeAll(ctx context.Context, backend Backend, records []types.Record, cfg types.ClassifyConfig, checkpoint func([]types.Record) error, w io.Writer) (BatchSummary, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	interval := cfg.CheckpointInterval
	if interval <= 0 {
		interval = defaultCheckpointInterval
	}

	var summary BatchSummary
	sinceCheckpoint := 0
	for i := range records {
		rec := &records[i]
		if rec.IsClassified() {
			summary.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		c, err := codeWithRetry(ctx, backend, *rec, maxRetries)
		if err != nil {
			fmt.Fprintf(w, "failed: %q (%v)\n", shortTitle(rec.Title), err)
			summary.Failed++
			continue
		}
		summary.Invalid += apply(rec, c, w)
		summary.Coded++

		sinceCheckpoint++
		if checkpoint != nil && sinceCheckpoint >= interval {
			if err := checkpoint(records); err != nil {
				return summary, fmt.Errorf("checkpoint after %d records: %w", summary.Coded, err)
			}
			fmt.Fprintf(w, "checkpoint: %d coded\n", summary.Coded)
			sinceCheckpoint = 0
		}
	}

	if checkpoint != nil && sinceCheckpoint > 0 {
		if err := checkpoint(records); err != nil {
			return summary, fmt.Errorf("final checkpoint: %w", err)
		}
	}
	return summary, nil
}

// codeWithRetry calls the backend with exponential backoff.
func codeWithRetry(ctx context.Context, backend Backend, rec types.Record, maxRetries int) (Classification, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Classification{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
		c, err := backend.Code(ctx, rec)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return Classification{}, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// apply validates a model answer field by field and writes it into the
// record. Answers outside a closed set are coerced to "Not Specified"
// rather than trusted, and the coercion count is returned.
func apply(rec *types.Record, c Classification, w io.Writer) int {
	invalid := 0

	rec.Country = c.Country

	region := types.Region(c.Region)
	if !types.ValidRegions[region] {
		if c.Region != "" {
			fmt.Fprintf(w, "invalid region %q for %q\n", c.Region, shortTitle(rec.Title))
			invalid++
		}
		region = types.RegionNotSpecified
	}
	rec.Region = region

	theme := types.Theme(c.Theme)
	if !types.ValidThemes[theme] {
		if c.Theme != "" {
			fmt.Fprintf(w, "invalid theme %q for %q\n", c.Theme, shortTitle(rec.Title))
			invalid++
		}
		theme = types.ThemeNotSpecified
	}
	rec.Theme = theme

	relevance := types.Relevance(c.Relevance)
	if !types.ValidRelevances[relevance] {
		if c.Relevance != "" {
			fmt.Fprintf(w, "invalid relevance %q for %q\n", c.Relevance, shortTitle(rec.Title))
			invalid++
		}
		relevance = types.RelevanceNotSpecified
	}
	rec.Relevance = relevance

	return invalid
}

func shortTitle(title string) string {
	const max = 50
	if len(title) <= max {
		return title
	}
	return title[:max] + "..."
}
