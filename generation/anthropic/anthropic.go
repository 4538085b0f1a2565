// Package anthropic is a generation backend for Anthropic's Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/tokenizer"
)

// defaultMaxTokens is sent when the request leaves MaxTokens unset; the
// Messages API requires it.
const defaultMaxTokens = 512

// Config provides configuration options for the backend
type Config struct {
	APIKey  string
	BaseURL string

	// ContextWindow enables a preflight token count through the Messages
	// count_tokens endpoint.
	ContextWindow int
}

// Backend sends single-turn Messages requests.
type Backend struct {
	client        *anthropic.Client
	contextWindow int
}

// New creates a Messages backend. The API key falls back to ANTHROPIC_API_KEY.
func New(config Config) (*Backend, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Backend{client: &client, contextWindow: config.ContextWindow}, nil
}

// Generate implements generation.Backend.
func (b *Backend) Generate(ctx context.Context, req generation.Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	if b.contextWindow > 0 {
		counter := tokenizer.NewAnthropicTokenizer(b.client, req.Model)
		if n, err := counter.CountTokens(ctx, req.Prompt); err == nil && n+maxTokens > b.contextWindow {
			return "", fmt.Errorf("%w: %d prompt tokens + %d max tokens > %d", generation.ErrPromptTooLong, n, maxTokens, b.contextWindow)
		}
	}

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return "", classifyError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", generation.ErrEmptyResponse
	}
	return text, nil
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", generation.ErrModelUnavailable, err)
	}
	return err
}
