// Package cached memoizes embeddings in front of another provider so repeated
// texts are embedded once.
package cached

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/botirk38/agentcache/types"
)

// Provider wraps an EmbeddingProvider with a fixed-size LRU keyed by text.
type Provider struct {
	next  types.EmbeddingProvider
	cache *lru.Cache[string, types.Embedding]
}

// New creates a memoizing provider holding up to size embeddings.
func New(next types.EmbeddingProvider, size int) (*Provider, error) {
	if next == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if size <= 0 {
		return nil, errors.New("memo size must be positive")
	}

	cache, err := lru.New[string, types.Embedding](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding memo: %w", err)
	}
	return &Provider{next: next, cache: cache}, nil
}

// EmbedText returns the memoized embedding for text, asking the wrapped
// provider on a miss. Errors are not memoized.
func (p *Provider) EmbedText(ctx context.Context, text string) (types.Embedding, error) {
	if v, ok := p.cache.Get(text); ok {
		return clone(v), nil
	}

	v, err := p.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Add(text, clone(v))
	return v, nil
}

// GetMaxTokens forwards the wrapped provider's limit, or 0 when it has none.
func (p *Provider) GetMaxTokens() int {
	if limiter, ok := p.next.(types.TokenLimiter); ok {
		return limiter.GetMaxTokens()
	}
	return 0
}

// Len returns the number of memoized embeddings.
func (p *Provider) Len() int {
	return p.cache.Len()
}

// Purge drops every memoized embedding.
func (p *Provider) Purge() {
	p.cache.Purge()
}

// Close purges the memo and closes the wrapped provider.
func (p *Provider) Close() {
	p.cache.Purge()
	p.next.Close()
}

func clone(v types.Embedding) types.Embedding {
	out := make(types.Embedding, len(v))
	copy(out, v)
	return out
}
