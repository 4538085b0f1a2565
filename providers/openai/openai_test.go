package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v2"
)

func TestOpenAIProvider_GetMaxTokens(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		expected int
	}{
		{
			name:     "text-embedding-3-small",
			model:    openai.EmbeddingModelTextEmbedding3Small,
			expected: 8191,
		},
		{
			name:     "text-embedding-3-large",
			model:    openai.EmbeddingModelTextEmbedding3Large,
			expected: 8191,
		},
		{
			name:     "text-embedding-ada-002",
			model:    openai.EmbeddingModelTextEmbeddingAda002,
			expected: 8191,
		},
		{
			name:     "unknown model",
			model:    "unknown-model",
			expected: 8191, // Should return safe default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &OpenAIProvider{
				model: tt.model,
			}

			maxTokens := provider.GetMaxTokens()
			if maxTokens != tt.expected {
				t.Errorf("GetMaxTokens() = %d, want %d for model %s", maxTokens, tt.expected, tt.model)
			}
		})
	}
}

func TestOpenAIModelLimits(t *testing.T) {
	// Test that all expected models are in the limits map
	expectedModels := []string{
		openai.EmbeddingModelTextEmbedding3Small,
		openai.EmbeddingModelTextEmbedding3Large,
		openai.EmbeddingModelTextEmbeddingAda002,
	}

	for _, model := range expectedModels {
		if limit, exists := openAIModelLimits[model]; !exists {
			t.Errorf("model %s not found in openAIModelLimits", model)
		} else if limit != 8191 {
			t.Errorf("model %s has unexpected limit %d, expected 8191", model, limit)
		}
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Fatal("expected error when no API key is available")
	}

	t.Setenv("OPENAI_API_KEY", "from-env")
	provider, err := NewOpenAIProvider(OpenAIConfig{})
	if err != nil {
		t.Fatalf("Failed to create provider from environment: %v", err)
	}
	if provider.Model() != DefaultOpenAIModel {
		t.Errorf("expected default model %s, got %s", DefaultOpenAIModel, provider.Model())
	}
}

func TestOpenAIProvider_EmbedText(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8,0]}],"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer provider.Close()

	embedding, err := provider.EmbedText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Failed to embed text: %v", err)
	}

	want := []float64{0.6, 0.8, 0}
	if len(embedding) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(embedding))
	}
	for i := range want {
		if embedding[i] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, embedding[i], want[i])
		}
	}
	if gotModel != DefaultOpenAIModel {
		t.Errorf("expected request for %s, got %s", DefaultOpenAIModel, gotModel)
	}
}

func TestOpenAIProvider_EmbedTextError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.EmbedText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from failing server")
	}
	if calls != 1 {
		t.Errorf("expected a single request without retries, got %d", calls)
	}
}
