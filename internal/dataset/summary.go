// Copyright Caddis Lab, 2026. All rights reserved.

package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// RunSummary is the audit record written next to a stage's output, so a
// later reader can tell when and how an artifact was produced.
type RunSummary struct {
	Stage    string         `yaml:"stage"`
	RunAt    string         `yaml:"run_at"`
	Input    string         `yaml:"input,omitempty"`
	Output   string         `yaml:"output,omitempty"`
	Counts   map[string]int `yaml:"counts,omitempty"`
	BySource map[string]int `yaml:"by_source,omitempty"`
	Notes    []string       `yaml:"notes,omitempty"`
}

// NewRunSummary returns a summary stamped with the current time.
func NewRunSummary(stage string) *RunSummary {
	return &RunSummary{
		Stage:  stage,
		RunAt:  time.Now().Format("2006-01-02 15:04:05"),
		Counts: make(map[string]int),
	}
}

// WriteSummary marshals the summary to YAML at path, atomically via a
// temp file in the same directory.
func WriteSummary(s *RunSummary, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".summary-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadSummary loads a run summary from path.
func ReadSummary(path string) (*RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}
