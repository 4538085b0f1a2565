package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/botirk38/agentcache/config"
	"github.com/botirk38/agentcache/fallback"
	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/generation/anthropic"
	"github.com/botirk38/agentcache/generation/gemini"
	"github.com/botirk38/agentcache/generation/openai"
	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/options"
	"github.com/botirk38/agentcache/orchestrator"
	"github.com/botirk38/agentcache/providers"
	embedopenai "github.com/botirk38/agentcache/providers/openai"
	"github.com/botirk38/agentcache/semanticcache"
	"github.com/botirk38/agentcache/tokenizer"
	"github.com/botirk38/agentcache/types"
)

const modelsTimeout = 10 * time.Second

type app struct {
	orchestrator *orchestrator.Orchestrator
	cache        *semanticcache.Cache
}

func (a *app) Close() {
	_ = a.cache.Close()
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	cache, err := buildCache(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	chain, err := buildChain(ctx, cfg, logger, m)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	orch, err := orchestrator.New(cache, chain, fallback.New(), nil,
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(m),
	)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	return &app{orchestrator: orch, cache: cache}, nil
}

func buildCache(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*semanticcache.Cache, error) {
	provider, err := providers.NewProvider(types.ProviderType(cfg.Embedding.Provider), embedopenai.OpenAIConfig{
		APIKey:  cfg.Embedding.APIKey(),
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	}, cfg.Cache.EmbeddingMemo)
	if err != nil {
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}

	opts := []options.Option{
		options.WithCustomProvider(provider),
		options.WithDimension(cfg.Embedding.Dimension),
		options.WithThreshold(cfg.Cache.Threshold),
		options.WithCapacity(cfg.Cache.Capacity),
		options.WithLogger(logger),
		options.WithMetrics(m),
	}
	if types.IndexType(cfg.Cache.Index) == types.IndexRedis {
		opts = append(opts, options.WithRedisIndexConfig(types.IndexConfig{
			ConnectionString: cfg.Cache.Redis.Addr,
			Username:         cfg.Cache.Redis.Username,
			Password:         cfg.Cache.Redis.Password,
			Database:         cfg.Cache.Redis.DB,
			Prefix:           cfg.Cache.Redis.Prefix,
		}))
	}

	cache, err := semanticcache.New(opts...)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("build cache: %w", err)
	}
	return cache, nil
}

func buildChain(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*generation.Chain, error) {
	candidates := make([]generation.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		backend, err := newBackend(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		candidates = append(candidates, generation.Provider{Spec: pc.Spec(), Backend: backend})
	}

	opts := []generation.ChainOption{
		generation.WithLogger(logger),
		generation.WithMetrics(m),
	}
	if cb := cfg.Generation.CircuitBreaker; cb.Enabled {
		opts = append(opts, generation.WithCircuitBreaker(generation.BreakerConfig{
			ConsecutiveFailures: cb.ConsecutiveFailures,
			OpenTimeout:         cb.OpenTimeout,
		}))
	}
	return generation.NewChain(candidates, opts...)
}

func newBackend(ctx context.Context, pc config.ProviderConfig) (generation.Backend, error) {
	switch pc.Kind {
	case generation.KindOpenAI:
		bc := openai.Config{
			APIKey:        pc.APIKey(),
			BaseURL:       pc.BaseURL,
			ContextWindow: pc.ContextWindow,
		}
		if pc.ContextWindow > 0 {
			counter, err := tokenizer.NewOpenAITokenizer()
			if err != nil {
				return nil, err
			}
			bc.Counter = counter
		}
		return openai.New(bc)
	case generation.KindAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:        pc.APIKey(),
			BaseURL:       pc.BaseURL,
			ContextWindow: pc.ContextWindow,
		})
	case generation.KindGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:        pc.APIKey(),
			BaseURL:       pc.BaseURL,
			ContextWindow: pc.ContextWindow,
		})
	}
	return nil, fmt.Errorf("unsupported provider kind %q", pc.Kind)
}

// listModels probes every OpenAI-compatible provider's model listing.
func listModels(ctx context.Context, w io.Writer, cfg *config.Config, logger *zap.Logger) error {
	for _, pc := range cfg.Providers {
		if pc.Kind != generation.KindOpenAI {
			continue
		}
		backend, err := openai.New(openai.Config{APIKey: pc.APIKey(), BaseURL: pc.BaseURL})
		if err != nil {
			return fmt.Errorf("provider %s: %w", pc.Name, err)
		}

		probeCtx, cancel := context.WithTimeout(ctx, modelsTimeout)
		models, err := backend.Models(probeCtx)
		cancel()
		if err != nil {
			logger.Warn("model listing failed", zap.String("provider", pc.Name), zap.Error(err))
			continue
		}
		for _, model := range models {
			fmt.Fprintf(w, "%s\t%s\n", pc.Name, model)
		}
	}
	return nil
}
