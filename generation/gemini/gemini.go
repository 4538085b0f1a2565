// Package gemini is a generation backend for the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/tokenizer"
)

// Config provides configuration options for the backend
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	// ContextWindow enables a preflight token count through countTokens.
	ContextWindow int
}

// Backend calls Models.GenerateContent with a single user turn.
type Backend struct {
	client        *genai.Client
	contextWindow int
}

// New creates a Gemini backend. The API key falls back to GEMINI_API_KEY.
func New(ctx context.Context, config Config) (*Backend, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  config.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Backend{client: client, contextWindow: config.ContextWindow}, nil
}

// Generate implements generation.Backend.
func (b *Backend) Generate(ctx context.Context, req generation.Request) (string, error) {
	if b.contextWindow > 0 {
		counter := tokenizer.NewGeminiTokenizer(b.client, req.Model)
		if n, err := counter.CountTokens(ctx, req.Prompt); err == nil && n+req.MaxTokens > b.contextWindow {
			return "", fmt.Errorf("%w: %d prompt tokens + %d max tokens > %d", generation.ErrPromptTooLong, n, req.MaxTokens, b.contextWindow)
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := b.client.Models.GenerateContent(
		ctx,
		req.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		config,
	)
	if err != nil {
		return "", classifyError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", generation.ErrEmptyResponse
	}
	return text, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case http.StatusBadRequest, http.StatusNotFound:
		return fmt.Errorf("%w: %w", generation.ErrModelUnavailable, err)
	}
	return err
}
