// Copyright Caddis Lab, 2026. All rights reserved.

// Package types defines shared data structures for the trichoptera-biblio
// pipeline: the canonical bibliographic record, the closed classification
// enumerations, and per-stage configuration.
package types

// Provider identifies the bibliographic source a record was fetched from.
type Provider string

const (
	ProviderScopus          Provider = "scopus"
	ProviderGoogleScholar   Provider = "google_scholar"
	ProviderOpenAlex        Provider = "openalex"
	ProviderSemanticScholar Provider = "semantic_scholar"
	ProviderCrossRef        Provider = "crossref"
	ProviderPubMed          Provider = "pubmed"
)

// Region is a biogeographic region assigned during classification.
type Region string

const (
	RegionNearctic       Region = "Nearctic"
	RegionNeotropical    Region = "Neotropical"
	RegionOriental       Region = "Oriental"
	RegionPalearctic     Region = "Palearctic"
	RegionEastPalearctic Region = "East Palearctic"
	RegionAfrotropical   Region = "Afrotropical"
	RegionAustralasian   Region = "Australasian"
	RegionMultiRegion    Region = "Multi-Region"
	RegionNotSpecified   Region = "Not Specified"
)

// Theme is a research theme category assigned during classification.
type Theme string

const (
	ThemeTaxonomy       Theme = "Taxonomy/Systematics"
	ThemeEvolution      Theme = "Evolution/Phylogeny"
	ThemeBiomonitoring  Theme = "Biomonitoring/Water Quality"
	ThemeEcology        Theme = "Ecology/Behavior"
	ThemeSilk           Theme = "Materials Science (Silk)"
	ThemeAppliedEcology Theme = "Applied Ecology"
	ThemeConservation   Theme = "Conservation"
	ThemePhysiology     Theme = "Physiology"
	ThemeOther          Theme = "Other"
	ThemeNotSpecified   Theme = "Not Specified"
)

// Relevance is the ordinal degree to which a paper focuses on Trichoptera.
type Relevance string

const (
	RelevancePrimary      Relevance = "Primary focus"
	RelevanceSecondary    Relevance = "Secondary mention"
	RelevancePeripheral   Relevance = "Peripheral"
	RelevanceNotFocused   Relevance = "Not focused"
	RelevanceNotSpecified Relevance = "Not Specified"
)

// ValidRegions is the closed set of accepted Region values.
var ValidRegions = map[Region]bool{
	RegionNearctic:       true,
	RegionNeotropical:    true,
	RegionOriental:       true,
	RegionPalearctic:     true,
	RegionEastPalearctic: true,
	RegionAfrotropical:   true,
	RegionAustralasian:   true,
	RegionMultiRegion:    true,
	RegionNotSpecified:   true,
}

// ValidThemes is the closed set of accepted Theme values.
var ValidThemes = map[Theme]bool{
	ThemeTaxonomy:       true,
	ThemeEvolution:      true,
	ThemeBiomonitoring:  true,
	ThemeEcology:        true,
	ThemeSilk:           true,
	ThemeAppliedEcology: true,
	ThemeConservation:   true,
	ThemePhysiology:     true,
	ThemeOther:          true,
	ThemeNotSpecified:   true,
}

// ValidRelevances is the closed set of accepted Relevance values.
var ValidRelevances = map[Relevance]bool{
	RelevancePrimary:      true,
	RelevanceSecondary:    true,
	RelevancePeripheral:   true,
	RelevanceNotFocused:   true,
	RelevanceNotSpecified: true,
}

// Record is the canonical, provider-agnostic representation of one
// bibliographic entry. Identity fields (DOI, Title, SourceProvider,
// QueryDate) are fixed at normalization time; enrichment fills Abstract
// and the author fields in place; classification fields are added once
// after LLM coding.
type Record struct {
	// DOI keeps the original casing; comparisons use the normalized form.
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Title string `json:"title" yaml:"title"`

	// SourceProvider identifies where the record was fetched from.
	SourceProvider Provider `json:"source_provider" yaml:"source_provider"`

	// QueryDate is the fetch timestamp in "2006-01-02 15:04:05" form.
	QueryDate string `json:"query_date,omitempty" yaml:"query_date,omitempty"`

	// Year is the publication year; 0 means missing, never a real year.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Authors is the author list as exported by the provider. For
	// providers that expose only a joined string this may hold a single
	// approximate entry per split token; see normalize.SplitAuthors.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// AllAuthors is the full author list recovered by enrichment.
	AllAuthors []string `json:"all_authors,omitempty" yaml:"all_authors,omitempty"`

	// Affiliations holds one entry per enriched author, institutions
	// joined with "; " within an entry.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`

	Abstract      string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	CitationCount int    `json:"citation_count" yaml:"citation_count"`
	JournalName   string `json:"journal_name,omitempty" yaml:"journal_name,omitempty"`
	Publisher     string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	ISSN          string `json:"issn,omitempty" yaml:"issn,omitempty"`
	DocumentType  string `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	ScopusID      string `json:"scopus_id,omitempty" yaml:"scopus_id,omitempty"`
	EID           string `json:"eid,omitempty" yaml:"eid,omitempty"`

	// Classification fields, populated by the LLM coding stage. Country
	// stays empty when it cannot be determined; the other three always
	// carry a value from their closed set once coding has been attempted.
	Country   string    `json:"country,omitempty" yaml:"country,omitempty"`
	Region    Region    `json:"region,omitempty" yaml:"region,omitempty"`
	Theme     Theme     `json:"research_theme,omitempty" yaml:"research_theme,omitempty"`
	Relevance Relevance `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// HasAbstract reports whether the record carries a non-empty abstract.
// Empty string and missing are equivalent.
func (r Record) HasAbstract() bool {
	return r.Abstract != ""
}

// HasAllAuthors reports whether enrichment has filled the full author list.
func (r Record) HasAllAuthors() bool {
	return len(r.AllAuthors) > 0
}

// IsClassified reports whether the LLM coding stage has run for this record.
func (r Record) IsClassified() bool {
	return r.Theme != "" && r.Relevance != ""
}
