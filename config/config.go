// Package config loads the agentcache YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/types"
)

const (
	DefaultThreshold      = 0.7
	DefaultMaxTokens      = 512
	DefaultTemperature    = 0.7
	DefaultTimeout        = 30 * time.Second
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultDimension      = 1536
	DefaultTogetherURL    = "https://api.together.xyz/v1"
)

// DefaultModels is the TogetherAI serverless model list, tried in order.
var DefaultModels = []string{
	"mistralai/Mistral-7B-Instruct-v0.1",
	"meta-llama/Llama-3.2-3B-Instruct-Turbo",
	"arcee-ai/coder-large",
	"arcee-ai/arcee-blitz",
	"WhereIsAI/UAE-Large-V1",
}

// Config is the root of the configuration file.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// CacheConfig configures the semantic cache and its vector index.
type CacheConfig struct {
	Threshold     float64     `yaml:"threshold"`
	Capacity      int         `yaml:"capacity"`
	Index         string      `yaml:"index"`
	EmbeddingMemo int         `yaml:"embedding_memo"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig is used when cache.index is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// GenerationConfig holds chain-wide settings and per-provider defaults.
type GenerationConfig struct {
	MaxTokens      int                  `yaml:"max_tokens"`
	Temperature    float64              `yaml:"temperature"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig enables a breaker per provider/model candidate.
type CircuitBreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// ProviderConfig is one entry of the ordered provider list.
type ProviderConfig struct {
	Name          string        `yaml:"name"`
	Kind          string        `yaml:"kind"`
	BaseURL       string        `yaml:"base_url"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Timeout       time.Duration `yaml:"timeout"`
	Models        []string      `yaml:"models"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   *float64      `yaml:"temperature"`
	ContextWindow int           `yaml:"context_window"`
}

// Default returns the built-in configuration: one TogetherAI provider and an
// in-process flat index, with provider defaults filled in.
func Default() *Config {
	cfg := defaults()
	cfg.applyDefaults()
	return cfg
}

// defaults leaves per-provider fields unset so a decoded generation block can
// still fill them.
func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Cache: CacheConfig{
			Threshold: DefaultThreshold,
			Index:     string(types.IndexFlat),
		},
		Embedding: EmbeddingConfig{
			Provider:  string(types.ProviderOpenAI),
			Model:     DefaultEmbeddingModel,
			Dimension: DefaultDimension,
		},
		Generation: GenerationConfig{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Providers: []ProviderConfig{{
			Name:    "together",
			Kind:    generation.KindOpenAI,
			BaseURL: DefaultTogetherURL,
			Timeout: DefaultTimeout,
			Models:  append([]string(nil), DefaultModels...),
		}},
	}
}

// Load reads the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader expands ${VAR} references, decodes over the defaults, fills
// per-provider defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := defaults()
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Index == "" {
		c.Cache.Index = string(types.IndexFlat)
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Timeout == 0 {
			p.Timeout = DefaultTimeout
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = c.Generation.MaxTokens
		}
		if p.Temperature == nil {
			t := c.Generation.Temperature
			p.Temperature = &t
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = defaultKeyEnv(p.Kind, p.BaseURL)
		}
	}
	if c.Embedding.APIKeyEnv == "" {
		c.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
}

func defaultKeyEnv(kind, baseURL string) string {
	switch kind {
	case generation.KindAnthropic:
		return "ANTHROPIC_API_KEY"
	case generation.KindGemini:
		return "GEMINI_API_KEY"
	}
	if baseURL == "" || strings.Contains(baseURL, "together") {
		return "TOGETHER_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Cache.Threshold < -1 || cfg.Cache.Threshold > 1 {
		errs = append(errs, fmt.Errorf("cache.threshold %.2f is out of range [-1, 1]", cfg.Cache.Threshold))
	}
	if cfg.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity %d must not be negative", cfg.Cache.Capacity))
	}
	switch types.IndexType(cfg.Cache.Index) {
	case types.IndexFlat:
	case types.IndexRedis:
		if cfg.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required when cache.index is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.index %q is invalid; valid values: flat, redis", cfg.Cache.Index))
	}

	if cfg.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension %d must be positive", cfg.Embedding.Dimension))
	}
	if cfg.Embedding.Provider != string(types.ProviderOpenAI) {
		errs = append(errs, fmt.Errorf("embedding.provider %q is invalid; valid values: openai", cfg.Embedding.Provider))
	}
	if cfg.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required"))
	}

	if len(cfg.Providers) == 0 {
		errs = append(errs, errors.New("at least one provider is required"))
	}
	seen := make(map[string]int, len(cfg.Providers))
	for i, p := range cfg.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := seen[p.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers[%d]", prefix, p.Name, prev))
			}
			seen[p.Name] = i
		}
		switch p.Kind {
		case generation.KindOpenAI, generation.KindAnthropic, generation.KindGemini:
		default:
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: openai, anthropic, gemini", prefix, p.Kind))
		}
		if p.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must be positive", prefix))
		}
		if len(p.Models) == 0 {
			errs = append(errs, fmt.Errorf("%s.models must list at least one model", prefix))
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("%s.max_tokens %d must not be negative", prefix, p.MaxTokens))
		}
	}

	return errors.Join(errs...)
}

// APIKey returns the value of the provider's key variable.
func (p ProviderConfig) APIKey() string {
	return os.Getenv(p.APIKeyEnv)
}

// Spec converts the entry into a generation.ProviderSpec.
func (p ProviderConfig) Spec() generation.ProviderSpec {
	spec := generation.ProviderSpec{
		Name:          p.Name,
		Kind:          p.Kind,
		Endpoint:      p.BaseURL,
		Timeout:       p.Timeout,
		Models:        append([]string(nil), p.Models...),
		MaxTokens:     p.MaxTokens,
		ContextWindow: p.ContextWindow,
	}
	if p.Temperature != nil {
		spec.Temperature = *p.Temperature
	}
	return spec
}

// APIKey returns the value of the embedding key variable.
func (e EmbeddingConfig) APIKey() string {
	return os.Getenv(e.APIKeyEnv)
}
