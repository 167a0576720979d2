package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/redline/internal/document"
)

// ltResponseSchema guards decoding of the LanguageTool check response.
// A response that fails validation is treated as malformed engine data,
// not silently coerced.
const ltResponseSchema = `{
  "type": "object",
  "required": ["matches"],
  "properties": {
    "matches": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["offset", "length"],
        "properties": {
          "offset": {"type": "integer", "minimum": 0},
          "length": {"type": "integer", "minimum": 0},
          "replacements": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {"value": {"type": "string"}}
            }
          },
          "rule": {
            "type": "object",
            "properties": {"id": {"type": "string"}}
          }
        }
      }
    }
  }
}`

var ltSchema = jsonschema.MustCompileString("languagetool-response.json", ltResponseSchema)

// LanguageToolConfig holds settings for the LanguageTool HTTP annotator.
type LanguageToolConfig struct {
	URL      string // Server base URL, e.g. http://localhost:8010
	Language string // e.g. "en-US"
	Timeout  time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// LanguageTool is an annotator backed by a LanguageTool server's
// /v2/check endpoint.
type LanguageTool struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewLanguageTool creates a LanguageTool annotator.
func NewLanguageTool(cfg LanguageToolConfig) *LanguageTool {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &LanguageTool{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		language: cfg.Language,
		client:   client,
	}
}

// Name implements Annotator.
func (lt *LanguageTool) Name() string { return "languagetool" }

// ltResponse mirrors the fields of /v2/check this tool consumes.
type ltResponse struct {
	Matches []struct {
		Offset       int `json:"offset"`
		Length       int `json:"length"`
		Replacements []struct {
			Value string `json:"value"`
		} `json:"replacements"`
		Rule struct {
			ID string `json:"id"`
		} `json:"rule"`
	} `json:"matches"`
}

// Annotate implements Annotator. Failures of any kind — transport,
// status, malformed body — wrap document.ErrCorrectionEngine so the
// applier can degrade the span to uncorrected after its retries.
func (lt *LanguageTool) Annotate(ctx context.Context, text string) ([]document.Match, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", lt.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", document.ErrCorrectionEngine, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := lt.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrCorrectionEngine, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", document.ErrCorrectionEngine, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", document.ErrCorrectionEngine, resp.StatusCode, lt.baseURL)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response: %v", document.ErrCorrectionEngine, err)
	}
	if err := ltSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: response failed schema validation: %v", document.ErrCorrectionEngine, err)
	}

	var parsed ltResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", document.ErrCorrectionEngine, err)
	}

	matches := make([]document.Match, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		replacements := make([]string, 0, len(m.Replacements))
		for _, r := range m.Replacements {
			replacements = append(replacements, r.Value)
		}
		matches = append(matches, document.Match{
			Offset:       m.Offset,
			Length:       m.Length,
			Replacements: replacements,
			Rule:         m.Rule.ID,
		})
	}
	return matches, nil
}
