// Package options provides functional options for configuring semantic cache instances.
package options

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/providers/openai"
	"github.com/botirk38/agentcache/types"
	"github.com/botirk38/agentcache/vectorstore"
)

// DefaultThreshold is the similarity at or above which a lookup is a hit.
const DefaultThreshold = 0.7

// ErrInvalidThreshold is returned for thresholds outside [-1, 1].
var ErrInvalidThreshold = errors.New("similarity threshold must be within [-1, 1]")

// Option represents a configuration option for a semantic cache
type Option func(*Config) error

// Config holds the configuration for building a semantic cache
type Config struct {
	Provider  types.EmbeddingProvider
	Dimension int
	Threshold float64
	Capacity  int

	// Index, when set, is used as is. Otherwise IndexType and IndexConfig
	// are used to build one once the dimension is known.
	Index       vectorstore.Index
	IndexType   types.IndexType
	IndexConfig types.IndexConfig

	// Chunking splits inputs longer than the provider's token limit and
	// averages the window embeddings.
	Chunking bool

	// EmbeddingMemoSize, when positive, memoizes that many embeddings.
	EmbeddingMemoSize int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		IndexType: types.IndexFlat,
		Chunking:  true,
		Logger:    zap.NewNop(),
	}
}

// Apply applies all the given options to the config
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Provider == nil {
		return errors.New("embedding provider is required - use WithOpenAIProvider, etc.")
	}
	if c.Dimension <= 0 {
		return errors.New("embedding dimension is required - use WithDimension")
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Threshold)
	}
	if c.Capacity < 0 {
		return vectorstore.ErrInvalidCapacity
	}
	return nil
}

// WithOpenAIProvider sets up OpenAI embedding provider
func WithOpenAIProvider(apiKey string, model ...string) Option {
	config := openai.OpenAIConfig{
		APIKey: apiKey,
	}
	if len(model) > 0 {
		config.Model = model[0]
	}
	return WithOpenAIConfig(config)
}

// WithOpenAIConfig sets up an OpenAI embedding provider from a full config,
// e.g. to target an OpenAI-compatible server through BaseURL.
func WithOpenAIConfig(config openai.OpenAIConfig) Option {
	return func(cfg *Config) error {
		provider, err := openai.NewOpenAIProvider(config)
		if err != nil {
			return err
		}
		cfg.Provider = provider
		return nil
	}
}

// WithCustomProvider allows using a pre-configured embedding provider
func WithCustomProvider(provider types.EmbeddingProvider) Option {
	return func(cfg *Config) error {
		if provider == nil {
			return errors.New("provider cannot be nil")
		}
		cfg.Provider = provider
		return nil
	}
}

// WithDimension sets the embedding dimension the cache accepts
func WithDimension(dimension int) Option {
	return func(cfg *Config) error {
		if dimension <= 0 {
			return vectorstore.ErrInvalidDimension
		}
		cfg.Dimension = dimension
		return nil
	}
}

// WithThreshold sets the similarity threshold for a hit
func WithThreshold(threshold float64) Option {
	return func(cfg *Config) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		cfg.Threshold = threshold
		return nil
	}
}

// WithCapacity bounds the number of cached entries. Zero means unbounded.
func WithCapacity(capacity int) Option {
	return func(cfg *Config) error {
		if capacity < 0 {
			return vectorstore.ErrInvalidCapacity
		}
		cfg.Capacity = capacity
		return nil
	}
}

// WithRedisIndex backs nearest-neighbour search with a RediSearch index
func WithRedisIndex(addr string, db int) Option {
	return func(cfg *Config) error {
		if addr == "" {
			return errors.New("redis address cannot be empty")
		}
		cfg.IndexType = types.IndexRedis
		cfg.IndexConfig.ConnectionString = addr
		cfg.IndexConfig.Database = db
		return nil
	}
}

// WithRedisIndexConfig is WithRedisIndex with credentials and a key prefix
func WithRedisIndexConfig(config types.IndexConfig) Option {
	return func(cfg *Config) error {
		if config.ConnectionString == "" {
			return errors.New("redis address cannot be empty")
		}
		cfg.IndexType = types.IndexRedis
		cfg.IndexConfig = config
		return nil
	}
}

// WithCustomIndex allows using a pre-configured index
func WithCustomIndex(index vectorstore.Index) Option {
	return func(cfg *Config) error {
		if index == nil {
			return errors.New("index cannot be nil")
		}
		cfg.Index = index
		return nil
	}
}

// WithoutChunking embeds long inputs as a single request
func WithoutChunking() Option {
	return func(cfg *Config) error {
		cfg.Chunking = false
		return nil
	}
}

// WithEmbeddingCache memoizes up to size embeddings in front of the provider
func WithEmbeddingCache(size int) Option {
	return func(cfg *Config) error {
		if size <= 0 {
			return errors.New("embedding cache size must be positive")
		}
		cfg.EmbeddingMemoSize = size
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *Config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.Logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *Config) error {
		cfg.Metrics = m
		return nil
	}
}
