// Copyright Caddis Lab, 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "trichoptera-biblio/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ScopusConfig holds settings for the Scopus fetch stage.
type ScopusConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the Elsevier Scopus search API.
	// A missing key is a fatal startup error for the fetch stage.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// InstToken is an optional institutional token required by some
	// subscriptions.
	InstToken string `json:"inst_token,omitempty" yaml:"inst_token,omitempty"`

	// Query is the Scopus search expression. Defaults to the Trichoptera
	// TITLE-ABS-KEY query.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// View selects the API view: "standard" (no abstracts, first author
	// only) or "complete" (premium access).
	View string `json:"view" yaml:"view"`

	// Window labels the query's publication window (a year or date
	// range). Raw response pages are archived under this label so
	// windowed runs sharing a DataDir do not overwrite each other.
	Window string `json:"window,omitempty" yaml:"window,omitempty"`

	// PageDelay is the delay between successive result pages (default 500ms).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// MaxResults caps the number of fetched records; 0 means no cap.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// DataDir is the directory for per-period raw exports.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// EnrichConfig holds settings for the enrichment stage.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// SemanticScholarAPIKey is optional; it raises the rate limit.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// Workers is the bounded worker count for batch enrichment (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// CheckpointInterval is the number of completed records between
	// checkpoint saves (default 50).
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval"`

	// MaxRetries is the per-source retry cap for transient errors (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestInterval is the minimum delay between requests to one source
	// (default 200ms), enforced across workers.
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval"`

	// CachePath is the SQLite enrichment cache location; empty disables
	// the cache.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
}

// ClassifyConfig holds settings for the LLM coding stage.
type ClassifyConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the chat completions API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CheckpointInterval is the number of coded records between checkpoint
	// saves (default 50).
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval"`
}

// OverlapConfig holds settings for cross-provider coverage comparison.
type OverlapConfig struct {
	// TitleThreshold is the minimum similarity for a title match (default 0.85).
	TitleThreshold float64 `json:"title_threshold" yaml:"title_threshold"`
}

// ReportConfig holds settings for the analysis reports.
type ReportConfig struct {
	// OutputDir is the base directory for report artifacts (e.g. "analysis/").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// PeriodYears is the bucket width for thematic evolution (default 4).
	PeriodYears int `json:"period_years" yaml:"period_years"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Scopus   ScopusConfig   `json:"scopus" yaml:"scopus"`
	Enrich   EnrichConfig   `json:"enrich" yaml:"enrich"`
	Classify ClassifyConfig `json:"classify" yaml:"classify"`
	Overlap  OverlapConfig  `json:"overlap" yaml:"overlap"`
	Report   ReportConfig   `json:"report" yaml:"report"`
}
