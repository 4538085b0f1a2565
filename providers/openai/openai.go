package openai

import (
	"context"
	"errors"
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/botirk38/agentcache/types"
)

const (
	DefaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Small

	// defaultMaxTokens is used for models missing from openAIModelLimits.
	defaultMaxTokens = 8191
)

// openAIModelLimits maps embedding models to their input token limit.
var openAIModelLimits = map[string]int{
	openai.EmbeddingModelTextEmbedding3Small: 8191,
	openai.EmbeddingModelTextEmbedding3Large: 8191,
	openai.EmbeddingModelTextEmbeddingAda002: 8191,
}

// OpenAIProvider uses OpenAI's API to embed text.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// OpenAIConfig provides configuration options for OpenAI embedding provider.
// BaseURL may point at any OpenAI-compatible embeddings server.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	OrgID   string
	Model   string
}

// NewOpenAIProvider creates an embedding provider for OpenAI.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OpenAI API key is required")
		}
	}

	model := config.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	// Failed lookups surface to the caller instead of being retried.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}, nil
}

// EmbedText sends the embedding request to OpenAI.
func (p *OpenAIProvider) EmbedText(ctx context.Context, text string) (types.Embedding, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned by OpenAI")
	}
	return resp.Data[0].Embedding, nil
}

// GetMaxTokens returns the input token limit of the configured model.
func (p *OpenAIProvider) GetMaxTokens() int {
	if limit, ok := openAIModelLimits[p.model]; ok {
		return limit
	}
	return defaultMaxTokens
}

// Model returns the embedding model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) Close() {}
