package providers

import (
	"testing"

	"github.com/botirk38/agentcache/providers/cached"
	"github.com/botirk38/agentcache/providers/openai"
	"github.com/botirk38/agentcache/types"
)

func TestNewProvider(t *testing.T) {
	config := openai.OpenAIConfig{APIKey: "test-key"}

	provider, err := NewProvider(types.ProviderOpenAI, config, 0)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if _, ok := provider.(*openai.OpenAIProvider); !ok {
		t.Errorf("Expected *openai.OpenAIProvider, got %T", provider)
	}
	provider.Close()

	provider, err = NewProvider("", config, 32)
	if err != nil {
		t.Fatalf("Failed to create memoized provider: %v", err)
	}
	if _, ok := provider.(*cached.Provider); !ok {
		t.Errorf("Expected *cached.Provider, got %T", provider)
	}
	provider.Close()

	if _, err := NewProvider("cohere", config, 0); err == nil {
		t.Error("Expected error for unsupported provider type")
	}
}
