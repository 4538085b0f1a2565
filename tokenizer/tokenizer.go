// Package tokenizer counts prompt tokens so generation backends can reject
// prompts that will not fit a model's context window before sending them.
package tokenizer

import "context"

// Counter counts the tokens a prompt will consume.
type Counter interface {
	CountTokens(ctx context.Context, prompt string) (int, error)
}
