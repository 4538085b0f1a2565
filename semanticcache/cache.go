// Package semanticcache answers queries from previously stored responses
// whose query embeddings are similar enough to the new one.
package semanticcache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/botirk38/agentcache/chunker"
	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/options"
	"github.com/botirk38/agentcache/providers/cached"
	"github.com/botirk38/agentcache/similarity"
	"github.com/botirk38/agentcache/types"
	"github.com/botirk38/agentcache/vectorstore"
)

// LookupResult is the outcome of a Lookup. Similarity is the best score seen
// even on a miss, and zero when the cache is empty.
type LookupResult struct {
	Hit        bool
	Response   string
	Similarity float64
	Query      string
	ID         types.EntryID
}

// Stats is a snapshot of the cache.
type Stats struct {
	EntryCount int     `json:"entry_count"`
	Dimension  int     `json:"dimension"`
	Threshold  float64 `json:"threshold"`
}

// Cache is a semantic cache over a vector store.
type Cache struct {
	store     *vectorstore.Store
	provider  types.EmbeddingProvider
	chunker   chunker.Chunker
	threshold float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New creates a Cache with functional options.
func New(opts ...options.Option) (*Cache, error) {
	cfg := options.NewConfig()

	if err := cfg.Apply(opts...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := cfg.Provider
	if cfg.EmbeddingMemoSize > 0 {
		memo, err := cached.New(provider, cfg.EmbeddingMemoSize)
		if err != nil {
			return nil, err
		}
		provider = memo
	}

	index := cfg.Index
	if index == nil {
		indexConfig := cfg.IndexConfig
		indexConfig.Dimensions = cfg.Dimension
		var err error
		index, err = vectorstore.NewIndex(context.Background(), cfg.IndexType, indexConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s index: %w", cfg.IndexType, err)
		}
	}

	store, err := vectorstore.New(cfg.Dimension,
		vectorstore.WithIndex(index),
		vectorstore.WithCapacity(cfg.Capacity),
	)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		store:     store,
		provider:  provider,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}

	if cfg.Chunking {
		if limiter, ok := provider.(types.TokenLimiter); ok && limiter.GetMaxTokens() > 0 {
			ch, err := chunker.New(chunker.DefaultConfig().WithMaxTokens(limiter.GetMaxTokens()))
			if err != nil {
				return nil, err
			}
			c.chunker = ch
		}
	}

	return c, nil
}

// Lookup embeds the query and reports whether its nearest stored entry is at
// least as similar as the threshold.
func (c *Cache) Lookup(ctx context.Context, query string) (LookupResult, error) {
	embedding, err := c.embed(ctx, query)
	if err != nil {
		c.metrics.ObserveCacheLookup(metrics.ResultError)
		return LookupResult{}, err
	}

	neighbor, found, err := c.store.Nearest(ctx, embedding)
	if err != nil {
		c.metrics.ObserveCacheLookup(metrics.ResultError)
		return LookupResult{}, err
	}
	if !found {
		c.metrics.ObserveCacheLookup(metrics.ResultMiss)
		return LookupResult{}, nil
	}

	result := LookupResult{
		Similarity: neighbor.Similarity,
		ID:         neighbor.Entry.ID,
	}
	if neighbor.Similarity < c.threshold {
		c.metrics.ObserveCacheLookup(metrics.ResultMiss)
		c.logger.Debug("cache miss", zap.Float64("similarity", neighbor.Similarity))
		return result, nil
	}

	result.Hit = true
	result.Response = neighbor.Entry.Response
	result.Query = neighbor.Entry.Query
	c.metrics.ObserveCacheLookup(metrics.ResultHit)
	c.logger.Debug("cache hit",
		zap.Float64("similarity", neighbor.Similarity),
		zap.Int("id", int(neighbor.Entry.ID)),
	)
	return result, nil
}

// Insert embeds the query and stores it with its response.
func (c *Cache) Insert(ctx context.Context, query, response string) (types.EntryID, error) {
	embedding, err := c.embed(ctx, query)
	if err != nil {
		return 0, err
	}

	id, err := c.store.Insert(ctx, embedding, query, response)
	if err != nil {
		return 0, err
	}

	entries := c.store.Len()
	c.metrics.SetCacheEntries(entries)
	c.logger.Debug("cache insert", zap.Int("id", int(id)), zap.Int("entries", entries))
	return id, nil
}

// Stats returns the entry count, dimension and threshold.
func (c *Cache) Stats() Stats {
	return Stats{
		EntryCount: c.store.Len(),
		Dimension:  c.store.Dimension(),
		Threshold:  c.threshold,
	}
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.metrics.SetCacheEntries(0)
	c.logger.Info("cache cleared")
	return nil
}

// Close releases the index and the embedding provider.
func (c *Cache) Close() error {
	c.provider.Close()
	return c.store.Close()
}

// embed returns the unit embedding of text. Text longer than the provider's
// token limit is embedded window by window and the windows are averaged.
func (c *Cache) embed(ctx context.Context, text string) (types.Embedding, error) {
	var (
		vec types.Embedding
		err error
	)
	if c.chunker != nil && text != "" {
		vec, err = c.embedChunked(ctx, text)
	} else {
		vec, err = c.embedOne(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	unit, err := similarity.Normalize(vec)
	if errors.Is(err, similarity.ErrZeroVector) {
		return nil, ErrDegenerateEmbedding
	}
	return unit, err
}

func (c *Cache) embedOne(ctx context.Context, text string) (types.Embedding, error) {
	vec, err := c.provider.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(vec) != c.store.Dimension() {
		return nil, fmt.Errorf("%w: got %d, want %d", vectorstore.ErrDimensionMismatch, len(vec), c.store.Dimension())
	}
	return vec, nil
}

func (c *Cache) embedChunked(ctx context.Context, text string) (types.Embedding, error) {
	chunks, err := c.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split input: %w", err)
	}
	if len(chunks) == 1 {
		return c.embedOne(ctx, text)
	}

	c.logger.Debug("embedding long input in windows", zap.Int("chunks", len(chunks)))
	vectors := make([][]float64, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := c.embedOne(ctx, chunk.Text)
		if err != nil {
			return nil, err
		}
		unit, err := similarity.Normalize(vec)
		if err != nil {
			// A window with no signal does not contribute.
			continue
		}
		vectors = append(vectors, unit)
	}
	if len(vectors) == 0 {
		return nil, ErrDegenerateEmbedding
	}
	return similarity.Mean(vectors), nil
}
