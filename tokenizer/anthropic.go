package tokenizer

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicTokenizer counts tokens for a single user message
type AnthropicTokenizer struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicTokenizer creates a new AnthropicTokenizer with the provided client and model
func NewAnthropicTokenizer(client *anthropic.Client, model string) *AnthropicTokenizer {
	return &AnthropicTokenizer{
		client: client,
		model:  model,
	}
}

// CountTokens counts the prompt's tokens using Anthropic's token counting
// endpoint. This makes an API call.
func (t *AnthropicTokenizer) CountTokens(ctx context.Context, prompt string) (int, error) {
	if prompt == "" {
		return 0, nil
	}

	if t.client == nil {
		return 0, fmt.Errorf("anthropic client is required for token counting")
	}
	if t.model == "" {
		return 0, fmt.Errorf("anthropic model is required for token counting")
	}

	result, err := t.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(t.model),
		Messages: []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		return 0, fmt.Errorf("anthropic token counting failed: %w", err)
	}

	return int(result.InputTokens), nil
}
