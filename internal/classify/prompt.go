// Copyright Caddis Lab, 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/caddislab/trichoptera-biblio/pkg/types"
)

// codingPromptTmpl is the prompt sent to the chat API for each record. It
// pins every field to a closed vocabulary so responses can be validated
// mechanically.
var codingPromptTmpl = template.Must(template.New("coding").Parse(`You are a bibliometric coding assistant for a systematic review of Trichoptera (caddisfly) literature. Classify the following paper using ONLY the categories listed.

- country: the single country the study was conducted in, or "" if it cannot be determined from the text
- region: one of "Nearctic", "Neotropical", "Oriental", "Palearctic", "East Palearctic", "Afrotropical", "Australasian", "Multi-Region", "Not Specified"
- research_theme: one of "Taxonomy/Systematics", "Evolution/Phylogeny", "Biomonitoring/Water Quality", "Ecology/Behavior", "Materials Science (Silk)", "Applied Ecology", "Conservation", "Physiology", "Other"
- relevance: one of "Primary focus", "Secondary mention", "Peripheral", "Not focused"

For country and region, prefer the study location named in the text; when the text does not name one, infer it from the author affiliations. Respond with a JSON object containing exactly the four fields above. Do not include any text outside the JSON object.

Example response:
{"country": "Brazil", "region": "Neotropical", "research_theme": "Ecology/Behavior", "relevance": "Primary focus"}

Title: {{.Title}}

Abstract: {{.Abstract}}
{{if .Affiliations}}
Author affiliations: {{.Affiliations}}
{{end}}`))

// chatAPIURL is the chat completions endpoint. Package-level var for test
// substitution.
var chatAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls an OpenAI-compatible chat completions API to code
// one record at a time.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Code sends the coding prompt for one record and parses the JSON reply.
func (b *OpenAIBackend) Code(ctx context.Context, rec types.Record) (Classification, error) {
	prompt, err := renderPrompt(rec)
	if err != nil {
		return Classification{}, fmt.Errorf("rendering prompt: %w", err)
	}

	// Temperature 0 keeps the coding deterministic across reruns.
	reqBody := chatRequest{
		Model:       b.Model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Classification{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Classification{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Classification{}, fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Classification{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return Classification{}, fmt.Errorf("chat API returned no choices")
	}

	var c Classification
	if err := json.Unmarshal([]byte(stripFences(cResp.Choices[0].Message.Content)), &c); err != nil {
		return Classification{}, fmt.Errorf("parsing coding JSON: %w", err)
	}
	return c, nil
}

// renderPrompt executes the coding template for one record.
func renderPrompt(rec types.Record) (string, error) {
	abstract := rec.Abstract
	if abstract == "" {
		abstract = "(no abstract available)"
	}
	var buf bytes.Buffer
	err := codingPromptTmpl.Execute(&buf, struct {
		Title        string
		Abstract     string
		Affiliations string
	}{
		Title:        rec.Title,
		Abstract:     abstract,
		Affiliations: strings.Join(rec.Affiliations, " | "),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripFences removes a Markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
