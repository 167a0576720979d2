package engine

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/redline/internal/document"
)

const rewriteSystemPrompt = `You are a copy editor. Correct spelling, punctuation, spacing, casing, and simple agreement errors in the text you are given. Do not rephrase, reorder, add, or remove content. Preserve all markdown markers exactly. Reply with the corrected text only.`

// OpenAIRewriterConfig holds settings for an OpenAI-compatible chat
// endpoint used as a rewriter engine.
type OpenAIRewriterConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional: any OpenAI-compatible server (local runtimes included)
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// OpenAIRewriter sends each span through a chat completion and returns
// the model's full replacement text.
type OpenAIRewriter struct {
	model  string
	client openai.Client
}

// NewOpenAIRewriter creates a rewriter backed by the OpenAI SDK.
func NewOpenAIRewriter(cfg OpenAIRewriterConfig) *OpenAIRewriter {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIRewriter{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

// Name implements Rewriter.
func (r *OpenAIRewriter) Name() string { return "openai" }

// Rewrite implements Rewriter.
func (r *OpenAIRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(rewriteSystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", document.ErrCorrectionEngine, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion from %s", document.ErrCorrectionEngine, r.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
