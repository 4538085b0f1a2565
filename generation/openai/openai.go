// Package openai is a generation backend for OpenAI-compatible chat
// completion endpoints such as TogetherAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/tokenizer"
)

const (
	// DefaultBaseURL is TogetherAI's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.together.xyz/v1"

	modelNotAvailable = "model_not_available"
)

// Config provides configuration options for the backend
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	// Counter and ContextWindow enable a preflight prompt size check.
	Counter       tokenizer.Counter
	ContextWindow int
}

// Backend sends single-turn chat completions.
type Backend struct {
	client        *openai.Client
	counter       tokenizer.Counter
	contextWindow int
}

// New creates a chat completion backend. The API key falls back to
// TOGETHER_API_KEY and then OPENAI_API_KEY.
func New(config Config) (*Backend, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("TOGETHER_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("API key is required for OpenAI-compatible backend")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// The chain moves on to the next candidate instead of retrying.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}

	client := openai.NewClient(opts...)
	return &Backend{
		client:        &client,
		counter:       config.Counter,
		contextWindow: config.ContextWindow,
	}, nil
}

// Generate implements generation.Backend.
func (b *Backend) Generate(ctx context.Context, req generation.Request) (string, error) {
	if err := b.preflight(ctx, req); err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", generation.ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", generation.ErrEmptyResponse
	}
	return text, nil
}

// Models lists the model IDs the endpoint serves. It is used to probe
// connectivity when every candidate failed.
func (b *Backend) Models(ctx context.Context) ([]string, error) {
	page, err := b.client.Models.List(ctx)
	if err != nil {
		return nil, classifyError(err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (b *Backend) preflight(ctx context.Context, req generation.Request) error {
	if b.counter == nil || b.contextWindow <= 0 {
		return nil
	}
	n, err := b.counter.CountTokens(ctx, req.Prompt)
	if err != nil {
		// Counting is best effort; let the endpoint decide.
		return nil
	}
	if n+req.MaxTokens > b.contextWindow {
		return fmt.Errorf("%w: %d prompt tokens + %d max tokens > %d", generation.ErrPromptTooLong, n, req.MaxTokens, b.contextWindow)
	}
	return nil
}

// classifyError maps "model unavailable" responses onto
// generation.ErrModelUnavailable and passes everything else through.
func classifyError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", generation.ErrModelUnavailable, err)
	case http.StatusBadRequest:
		if apiErr.Code == modelNotAvailable || strings.Contains(apiErr.RawJSON(), modelNotAvailable) {
			return fmt.Errorf("%w: %w", generation.ErrModelUnavailable, err)
		}
	}
	return err
}
