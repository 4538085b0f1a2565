// Package providers builds embedding providers by type.
package providers

import (
	"fmt"

	"github.com/botirk38/agentcache/providers/cached"
	"github.com/botirk38/agentcache/providers/openai"
	"github.com/botirk38/agentcache/types"
)

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config openai.OpenAIConfig) (types.EmbeddingProvider, error) {
	return openai.NewOpenAIProvider(config)
}

// NewProvider creates an embedding provider of the given type. A positive
// memoSize puts an LRU memo of that many texts in front of it.
func NewProvider(providerType types.ProviderType, config openai.OpenAIConfig, memoSize int) (types.EmbeddingProvider, error) {
	var (
		provider types.EmbeddingProvider
		err      error
	)
	switch providerType {
	case types.ProviderOpenAI, "":
		provider, err = NewOpenAIProvider(config)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
	if err != nil {
		return nil, err
	}

	if memoSize <= 0 {
		return provider, nil
	}
	return cached.New(provider, memoSize)
}
