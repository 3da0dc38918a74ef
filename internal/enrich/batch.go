// Copyright Caddis Lab, 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// Task selects which field a batch run fills.
type Task string

const (
	TaskAbstracts Task = "abstracts"
	TaskAuthors   Task = "authors"
)

const (
	defaultWorkers            = 4
	defaultCheckpointInterval = 50
)

// BatchConfig controls a batch enrichment run.
type BatchConfig struct {
	// Workers is the number of concurrent fetchers (default 4).
	Workers int

	// CheckpointInterval is how many filled-or-exhausted records pass
	// between checkpoint saves (default 50).
	CheckpointInterval int

	// Checkpoint persists the current state of the records. Nil disables
	// checkpointing. A checkpoint failure aborts the run: continuing
	// without durable progress would waste every request made.
	Checkpoint func(records []types.Record) error
}

// BatchResult summarizes a batch enrichment run.
type BatchResult struct {
	Processed int
	Skipped   int
	Filled    int
	Exhausted int

	// FilledBySource counts fills per source name.
	FilledBySource map[string]int

	// NotFound and Errors count per-source attempt outcomes across all
	// processed records, so confirmed absence stays distinguishable from
	// transient failure.
	NotFound map[string]int
	Errors   map[string]int
}

// Total returns the number of records considered.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped
}

// Coverage returns the fraction of records that hold the field after the
// run, counting records skipped as already filled.
func (r BatchResult) Coverage() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(r.Skipped+r.Filled) / float64(total)
}

type batchOutcome struct {
	index    int
	value    string
	authors  AuthorData
	source   string
	attempts []Attempt
}

// RunBatch fills the task's field for every record that is missing it,
// mutating records in place. Records that already hold the field are
// skipped without any network traffic, which makes reruns over a partial
// output file resume where they left off. Per-record progress goes to w.
func RunBatch(ctx context.Context, c *Cascade, records []types.Record, task Task, cfg BatchConfig, w io.Writer) (BatchResult, error) {
	result := BatchResult{
		FilledBySource: make(map[string]int),
		NotFound:       make(map[string]int),
		Errors:         make(map[string]int),
	}

	var pending []int
	for i := range records {
		if batchSkip(&records[i], task) {
			result.Skipped++
			continue
		}
		pending = append(pending, i)
	}
	fmt.Fprintf(w, "enriching %s: %d to process, %d already filled\n", task, len(pending), result.Skipped)
	if len(pending) == 0 {
		return result, nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	interval := cfg.CheckpointInterval
	if interval <= 0 {
		interval = defaultCheckpointInterval
	}

	jobs := make(chan int)
	outcomes := make(chan batchOutcome, workers)
	var wg sync.WaitGroup

	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doi := records[i].DOI
				var out batchOutcome
				out.index = i
				if task == TaskAuthors {
					out.authors, out.source, out.attempts = c.FetchAuthors(ctx, doi)
				} else {
					out.value, out.source, out.attempts = c.FetchAbstract(ctx, doi)
				}
				outcomes <- out
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, i := range pending {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single writer: only this loop touches records, so workers stay
	// read-only on the shared slice.
	sinceCheckpoint := 0
	for out := range outcomes {
		rec := &records[out.index]
		result.Processed++
		for _, a := range out.attempts {
			switch a.Status {
			case AttemptNotFound:
				result.NotFound[a.Source]++
			case AttemptError:
				result.Errors[a.Source]++
			}
		}
		if out.source != "" {
			batchApply(rec, task, out)
			result.Filled++
			result.FilledBySource[out.source]++
			fmt.Fprintf(w, "filled: %s (%s)\n", rec.DOI, out.source)
		} else {
			result.Exhausted++
			fmt.Fprintf(w, "exhausted: %q\n", truncateTitle(rec.Title))
		}

		sinceCheckpoint++
		if cfg.Checkpoint != nil && sinceCheckpoint >= interval {
			if err := cfg.Checkpoint(records); err != nil {
				return result, fmt.Errorf("checkpoint after %d records: %w", result.Processed, err)
			}
			fmt.Fprintf(w, "checkpoint: %d/%d processed\n", result.Processed, len(pending))
			sinceCheckpoint = 0
		}
	}

	if err := ctx.Err(); err != nil {
		// Persist whatever completed before the cancellation.
		if cfg.Checkpoint != nil && sinceCheckpoint > 0 {
			if cpErr := cfg.Checkpoint(records); cpErr != nil {
				return result, fmt.Errorf("final checkpoint: %w", cpErr)
			}
		}
		return result, err
	}
	if cfg.Checkpoint != nil && sinceCheckpoint > 0 {
		if err := cfg.Checkpoint(records); err != nil {
			return result, fmt.Errorf("final checkpoint: %w", err)
		}
	}
	return result, nil
}

// batchSkip reports whether a record already holds the task's field.
// DOI-less records are not skipped: they pass through the cascade, which
// exhausts them immediately, so they show up in the statistics as
// unenrichable rather than vanishing into the skip count.
func batchSkip(rec *types.Record, task Task) bool {
	if task == TaskAuthors {
		return rec.HasAllAuthors()
	}
	return rec.HasAbstract()
}

// batchApply writes a successful outcome into the record.
func batchApply(rec *types.Record, task Task, out batchOutcome) {
	if task == TaskAuthors {
		rec.AllAuthors = out.authors.Authors
		rec.Affiliations = out.authors.Affiliations
		return
	}
	rec.Abstract = out.value
}

func truncateTitle(title string) string {
	const max = 60
	if len(title) <= max {
		return title
	}
	return strings.TrimSpace(title[:max]) + "..."
}
