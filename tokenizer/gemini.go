package tokenizer

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiTokenizer counts tokens for Gemini prompts
type GeminiTokenizer struct {
	client *genai.Client
	model  string
}

// NewGeminiTokenizer creates a new GeminiTokenizer with the provided client and model
func NewGeminiTokenizer(client *genai.Client, model string) *GeminiTokenizer {
	return &GeminiTokenizer{
		client: client,
		model:  model,
	}
}

// CountTokens counts the prompt's tokens using Gemini's token counting
// endpoint. This makes an API call.
func (t *GeminiTokenizer) CountTokens(ctx context.Context, prompt string) (int, error) {
	if prompt == "" {
		return 0, nil
	}

	if t.client == nil {
		return 0, fmt.Errorf("gemini client is required for token counting")
	}
	if t.model == "" {
		return 0, fmt.Errorf("gemini model is required for token counting")
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	result, err := t.client.Models.CountTokens(ctx, t.model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("gemini token counting failed: %w", err)
	}

	return int(result.TotalTokens), nil
}
