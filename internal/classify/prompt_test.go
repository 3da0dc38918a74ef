// Copyright Caddis Lab, 2026. All rights reserved.

package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

func TestOpenAIBackendCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || req.Temperature != 0 {
			t.Errorf("model = %q, temperature = %v", req.Model, req.Temperature)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "Silken shelters of Hydropsyche") {
			t.Error("prompt does not carry the record title")
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"country\": \"Poland\", \"region\": \"Palearctic\", \"research_theme\": \"Ecology/Behavior\", \"relevance\": \"Primary focus\"}"}}]}`)
	}))
	defer srv.Close()

	orig := chatAPIURL
	chatAPIURL = srv.URL
	defer func() { chatAPIURL = orig }()

	backend := &OpenAIBackend{APIKey: "sk-test", Model: "gpt-4o-mini"}
	c, err := backend.Code(context.Background(), types.Record{
		Title:    "Silken shelters of Hydropsyche",
		Abstract: "Net-spinning caddisflies...",
	})
	if err != nil {
		t.Fatalf("Code() error = %v", err)
	}
	if c.Country != "Poland" || c.Region != "Palearctic" {
		t.Errorf("Classification = %+v", c)
	}
}

func TestOpenAIBackendFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"`+"```json\\n"+`{\"region\": \"Nearctic\"}`+"\\n```"+`"}}]}`)
	}))
	defer srv.Close()

	orig := chatAPIURL
	chatAPIURL = srv.URL
	defer func() { chatAPIURL = orig }()

	backend := &OpenAIBackend{APIKey: "k", Model: "m"}
	c, err := backend.Code(context.Background(), types.Record{Title: "T"})
	if err != nil {
		t.Fatalf("Code() error = %v", err)
	}
	if c.Region != "Nearctic" {
		t.Errorf("Region = %q", c.Region)
	}
}

func TestOpenAIBackendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	orig := chatAPIURL
	chatAPIURL = srv.URL
	defer func() { chatAPIURL = orig }()

	backend := &OpenAIBackend{APIKey: "k", Model: "m"}
	if _, err := backend.Code(context.Background(), types.Record{Title: "T"}); err == nil {
		t.Error("Code() on HTTP 429 succeeded, want error")
	}
}

func TestRenderPromptMissingAbstract(t *testing.T) {
	prompt, err := renderPrompt(types.Record{Title: "No abstract here"})
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "(no abstract available)") {
		t.Error("prompt does not flag the missing abstract")
	}
}

func TestRenderPromptIncludesAffiliations(t *testing.T) {
	prompt, err := renderPrompt(types.Record{
		Title:        "Phenology of alpine caddisflies",
		Abstract:     "Emergence patterns...",
		Affiliations: []string{"University of Innsbruck", "MARE, Univ. Lisboa"},
	})
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "Author affiliations: University of Innsbruck | MARE, Univ. Lisboa") {
		t.Errorf("prompt does not carry the affiliations:\n%s", prompt)
	}
}

func TestRenderPromptOmitsEmptyAffiliations(t *testing.T) {
	prompt, err := renderPrompt(types.Record{Title: "T", Abstract: "A"})
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}
	if strings.Contains(prompt, "Author affiliations") {
		t.Error("prompt carries an affiliation block for a record with none")
	}
}
