// Copyright Caddis Lab, 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// mockBackend returns canned classifications and counts calls.
type mockBackend struct {
	calls   int
	answers map[string]Classification
	errOn   map[string]int // title -> number of failures before success
}

func (m *mockBackend) Code(ctx context.Context, rec types.Record) (Classification, error) {
	m.calls++
	if n := m.errOn[rec.Title]; n > 0 {
		m.errOn[rec.Title]--
		return Classification{}, errors.New("transient API error")
	}
	if c, ok := m.answers[rec.Title]; ok {
		return c, nil
	}
	return Classification{
		Country:   "Brazil",
		Region:    "Neotropical",
		Theme:     "Ecology/Behavior",
		Relevance: "Primary focus",
	}, nil
}

func testConfig() types.ClassifyConfig {
	return types.ClassifyConfig{Model: "gpt-4o-mini", MaxRetries: 3, CheckpointInterval: 50}
}

func TestCodeAllFillsClassificationFields(t *testing.T) {
	backend := &mockBackend{}
	records := []types.Record{
		{Title: "Caddisflies of the Amazon", Abstract: "..."},
	}

	summary, err := CodeAll(context.Background(), backend, records, testConfig(), nil, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	if summary.Coded != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	rec := records[0]
	if rec.Country != "Brazil" || rec.Region != types.RegionNeotropical ||
		rec.Theme != types.ThemeEcology || rec.Relevance != types.RelevancePrimary {
		t.Errorf("record = %+v, classification not applied", rec)
	}
	if !rec.IsClassified() {
		t.Error("IsClassified() = false after coding")
	}
}

func TestCodeAllSkipsClassifiedRecords(t *testing.T) {
	backend := &mockBackend{}
	records := []types.Record{
		{Title: "Already coded", Theme: types.ThemeTaxonomy, Relevance: types.RelevancePrimary},
		{Title: "Needs coding"},
	}

	summary, err := CodeAll(context.Background(), backend, records, testConfig(), nil, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Coded != 1 {
		t.Errorf("summary = %+v, want 1 skipped and 1 coded", summary)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if records[0].Theme != types.ThemeTaxonomy {
		t.Error("already-coded record was overwritten")
	}
}

func TestCodeAllCoercesInvalidAnswers(t *testing.T) {
	backend := &mockBackend{
		answers: map[string]Classification{
			"Odd answer": {
				Country:   "Atlantis",
				Region:    "The Moon",
				Theme:     "Ecology/Behavior",
				Relevance: "Primary focus",
			},
		},
	}
	records := []types.Record{{Title: "Odd answer"}}

	summary, err := CodeAll(context.Background(), backend, records, testConfig(), nil, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	if summary.Invalid != 1 {
		t.Errorf("Invalid = %d, want 1", summary.Invalid)
	}
	if records[0].Region != types.RegionNotSpecified {
		t.Errorf("Region = %q, want coercion to Not Specified", records[0].Region)
	}
	// Country is free text and passes through untouched.
	if records[0].Country != "Atlantis" {
		t.Errorf("Country = %q", records[0].Country)
	}
	if records[0].Theme != types.ThemeEcology {
		t.Errorf("valid theme was not kept: %q", records[0].Theme)
	}
}

func TestCodeAllRetriesTransientFailures(t *testing.T) {
	backend := &mockBackend{errOn: map[string]int{"Flaky": 2}}
	records := []types.Record{{Title: "Flaky"}}

	summary, err := CodeAll(context.Background(), backend, records, testConfig(), nil, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	if summary.Coded != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want success after retries", summary)
	}
	if backend.calls != 3 {
		t.Errorf("backend called %d times, want 3", backend.calls)
	}
}

func TestCodeAllAbsorbsPermanentFailures(t *testing.T) {
	backend := &mockBackend{errOn: map[string]int{"Broken": 99}}
	records := []types.Record{
		{Title: "Broken"},
		{Title: "Fine"},
	}

	summary, err := CodeAll(context.Background(), backend, records, testConfig(), nil, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	if summary.Failed != 1 || summary.Coded != 1 {
		t.Errorf("summary = %+v, want the run to continue past the failure", summary)
	}
	if records[0].IsClassified() {
		t.Error("failed record was marked classified")
	}
	if !records[1].IsClassified() {
		t.Error("record after the failure was not coded")
	}
}

func TestCodeAllCheckpointCadence(t *testing.T) {
	backend := &mockBackend{}
	records := make([]types.Record, 120)
	for i := range records {
		records[i] = types.Record{Title: fmt.Sprintf("Paper %d", i)}
	}

	checkpoints := 0
	cfg := testConfig()
	_, err := CodeAll(context.Background(), backend, records, cfg, func([]types.Record) error {
		checkpoints++
		return nil
	}, io.Discard)
	if err != nil {
		t.Fatalf("CodeAll() error = %v", err)
	}
	// 50, 100, and the final flush at 120.
	if checkpoints != 3 {
		t.Errorf("checkpoint called %d times, want 3", checkpoints)
	}
}

func TestCodeAllCheckpointFailureAborts(t *testing.T) {
	backend := &mockBackend{}
	records := make([]types.Record, 5)
	for i := range records {
		records[i] = types.Record{Title: fmt.Sprintf("Paper %d", i)}
	}

	wantErr := errors.New("disk full")
	cfg := testConfig()
	cfg.CheckpointInterval = 2
	_, err := CodeAll(context.Background(), backend, records, cfg, func([]types.Record) error {
		return wantErr
	}, io.Discard)
	if !errors.Is(err, wantErr) {
		t.Errorf("CodeAll() error = %v, want wrapped checkpoint error", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"country": "Chile"}`, `{"country": "Chile"}`},
		{"```json\n{\"country\": \"Chile\"}\n```", `{"country": "Chile"}`},
		{"```\n{}\n```", `{}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
