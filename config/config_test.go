package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botirk38/agentcache/generation"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 0.7, cfg.Cache.Threshold)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, DefaultModels, cfg.Providers[0].Models)
	assert.Equal(t, 30*time.Second, cfg.Providers[0].Timeout)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct-v0.1", cfg.Providers[0].Models[0])
}

func TestDefault_ProviderSpec(t *testing.T) {
	p := Default().Providers[0]
	assert.Equal(t, "TOGETHER_API_KEY", p.APIKeyEnv)

	spec := p.Spec()
	assert.Equal(t, DefaultMaxTokens, spec.MaxTokens)
	assert.Equal(t, DefaultTemperature, spec.Temperature)
	assert.Equal(t, DefaultTimeout, spec.Timeout)
	assert.Equal(t, DefaultTogetherURL, spec.Endpoint)
	assert.Equal(t, "OPENAI_API_KEY", Default().Embedding.APIKeyEnv)
}

func TestLoadFromReader_GenerationDefaultsReachDefaultProvider(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("generation:\n  max_tokens: 256\n  temperature: 0.1\n"))
	require.NoError(t, err)

	spec := cfg.Providers[0].Spec()
	assert.Equal(t, 256, spec.MaxTokens)
	assert.Equal(t, 0.1, spec.Temperature)
}

func TestLoadFromReader_Empty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)

	p := cfg.Providers[0]
	assert.Equal(t, DefaultMaxTokens, p.MaxTokens)
	require.NotNil(t, p.Temperature)
	assert.Equal(t, DefaultTemperature, *p.Temperature)
	assert.Equal(t, "TOGETHER_API_KEY", p.APIKeyEnv)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedding.APIKeyEnv)
}

func TestLoadFromReader_Full(t *testing.T) {
	t.Setenv("AGENTCACHE_TEST_REDIS", "localhost:6379")
	yaml := `
log_level: debug
cache:
  threshold: 0.85
  capacity: 100
  index: redis
  redis:
    addr: ${AGENTCACHE_TEST_REDIS}
generation:
  max_tokens: 256
  temperature: 0.2
providers:
  - name: claude
    kind: anthropic
    timeout: 10s
    models: [claude-3-5-haiku-latest]
  - name: gemini
    kind: gemini
    models: [gemini-2.0-flash]
    max_tokens: 64
    temperature: 0
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 0.85, cfg.Cache.Threshold)
	require.Len(t, cfg.Providers, 2)

	claude := cfg.Providers[0]
	assert.Equal(t, "ANTHROPIC_API_KEY", claude.APIKeyEnv)
	assert.Equal(t, 10*time.Second, claude.Timeout)
	assert.Equal(t, 256, claude.MaxTokens)
	assert.Equal(t, 0.2, *claude.Temperature)

	gemini := cfg.Providers[1]
	assert.Equal(t, "GEMINI_API_KEY", gemini.APIKeyEnv)
	assert.Equal(t, DefaultTimeout, gemini.Timeout)

	spec := gemini.Spec()
	assert.Equal(t, generation.ProviderSpec{
		Name:      "gemini",
		Kind:      generation.KindGemini,
		Timeout:   DefaultTimeout,
		Models:    []string{"gemini-2.0-flash"},
		MaxTokens: 64,
	}, spec)
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("cache:\n  treshold: 0.5\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.Cache.Threshold = 1.5 }, "cache.threshold"},
		{"dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one provider"},
		{"kind", func(c *Config) { c.Providers[0].Kind = "cohere" }, "providers[0].kind"},
		{"timeout", func(c *Config) { c.Providers[0].Timeout = 0 }, "providers[0].timeout"},
		{"models", func(c *Config) { c.Providers[0].Models = nil }, "providers[0].models"},
		{"name", func(c *Config) { c.Providers[0].Name = "" }, "providers[0].name"},
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"index", func(c *Config) { c.Cache.Index = "faiss" }, "cache.index"},
		{"redis addr", func(c *Config) { c.Cache.Index = "redis" }, "cache.redis.addr"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"duplicate", func(c *Config) { c.Providers = append(c.Providers, c.Providers[0]) }, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Cache.Threshold = -2
	cfg.Embedding.Dimension = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.threshold")
	assert.Contains(t, err.Error(), "embedding.dimension")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  threshold: 0.9\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Cache.Threshold)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("AGENTCACHE_TEST_KEY", "secret")
	p := ProviderConfig{APIKeyEnv: "AGENTCACHE_TEST_KEY"}
	assert.Equal(t, "secret", p.APIKey())
}
