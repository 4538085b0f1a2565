package tokenizer

import (
	"context"
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// OpenAITokenizer counts tokens locally using tiktoken. It is also a good
// estimate for the open models served behind OpenAI-compatible endpoints.
type OpenAITokenizer struct {
	codec tokenizer.Codec
}

// NewOpenAITokenizer creates a new OpenAITokenizer using cl100k_base.
func NewOpenAITokenizer() (*OpenAITokenizer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &OpenAITokenizer{codec: codec}, nil
}

// CountTokens counts tokens in the prompt.
// This is a local, fast operation that doesn't require an API call
func (t *OpenAITokenizer) CountTokens(_ context.Context, prompt string) (int, error) {
	if prompt == "" {
		return 0, nil
	}

	ids, _, err := t.codec.Encode(prompt)
	if err != nil {
		return 0, fmt.Errorf("openai token counting failed: %w", err)
	}
	return len(ids), nil
}
