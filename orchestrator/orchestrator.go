// Package orchestrator answers agent queries from the semantic cache, falling
// back to the generation chain on a miss and to canned responses when every
// provider fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/botirk38/agentcache/agent"
	"github.com/botirk38/agentcache/fallback"
	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/semanticcache"
	"github.com/botirk38/agentcache/types"
	"github.com/botirk38/agentcache/vectorstore"
)

var ErrUnknownAgent = errors.New("unknown agent")

// Cache is the subset of *semanticcache.Cache the orchestrator uses.
type Cache interface {
	Lookup(ctx context.Context, query string) (semanticcache.LookupResult, error)
	Insert(ctx context.Context, query, response string) (types.EntryID, error)
	Stats() semanticcache.Stats
	Clear(ctx context.Context) error
}

// Generator is implemented by *generation.Chain.
type Generator interface {
	Generate(ctx context.Context, prompt string) generation.Result
}

// Synthesizer is implemented by *fallback.Synthesizer.
type Synthesizer interface {
	RespondTopic(prompt string) (string, fallback.Topic)
}

// AnswerResult describes how a query was answered. ProviderUsed and
// ModelUsed are empty unless a provider produced the text.
type AnswerResult struct {
	Agent        string         `json:"agent"`
	Text         string         `json:"response"`
	WasCacheHit  bool           `json:"is_cache_hit"`
	Similarity   float64        `json:"similarity_score"`
	ProviderUsed string         `json:"provider_used,omitempty"`
	ModelUsed    string         `json:"model_used,omitempty"`
	IsFallback   bool           `json:"is_fallback"`
	Topic        fallback.Topic `json:"topic,omitempty"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records answer durations and fallback counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator ties the cache, the generation chain and the fallback
// synthesizer together.
type Orchestrator struct {
	cache   Cache
	chain   Generator
	synth   Synthesizer
	agents  *agent.Registry
	flights singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates an Orchestrator. A nil registry means the built-in agents.
func New(cache Cache, chain Generator, synth Synthesizer, agents *agent.Registry, opts ...Option) (*Orchestrator, error) {
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	if chain == nil {
		return nil, errors.New("generator is required")
	}
	if synth == nil {
		synth = fallback.New()
	}
	if agents == nil {
		agents = agent.NewDefaultRegistry()
	}

	o := &Orchestrator{
		cache:  cache,
		chain:  chain,
		synth:  synth,
		agents: agents,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Answer runs query through the named agent. The returned error is non-nil
// only for an unknown agent or a cache failure; generation failures produce
// a fallback answer instead.
func (o *Orchestrator) Answer(ctx context.Context, agentName, query string) (*AnswerResult, error) {
	start := time.Now()

	a, ok := o.agents.Get(agentName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agentName)
	}
	prompt := a.Prompt(query)

	lookup, err := o.cache.Lookup(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if lookup.Hit {
		o.metrics.ObserveAnswerDuration(metrics.SourceCache, time.Since(start))
		return &AnswerResult{
			Agent:       a.Name,
			Text:        lookup.Response,
			WasCacheHit: true,
			Similarity:  lookup.Similarity,
		}, nil
	}

	// The flight outlives any single caller so that one caller giving up
	// does not fail the others. Per-candidate timeouts still bound it.
	flightCtx := context.WithoutCancel(ctx)
	flight := o.flights.DoChan(prompt, func() (interface{}, error) {
		return o.resolve(flightCtx, prompt)
	})

	var (
		res    AnswerResult
		shared bool
	)
	select {
	case r := <-flight:
		if r.Err != nil {
			return nil, r.Err
		}
		res = *r.Val.(*AnswerResult)
		shared = r.Shared
	case <-ctx.Done():
		res = o.fallback(prompt, "caller deadline", ctx.Err())
	}

	res.Agent = a.Name
	if !res.WasCacheHit {
		res.Similarity = lookup.Similarity
	}

	source := metrics.SourceProvider
	switch {
	case res.WasCacheHit:
		source = metrics.SourceCache
	case res.IsFallback:
		source = metrics.SourceFallback
	}
	o.metrics.ObserveAnswerDuration(source, time.Since(start))
	if shared {
		o.logger.Debug("answer shared with concurrent caller", zap.String("agent", a.Name))
	}
	return &res, nil
}

// resolve runs once per effective prompt among concurrent callers.
func (o *Orchestrator) resolve(ctx context.Context, prompt string) (*AnswerResult, error) {
	// A flight for the same prompt may have finished between our lookup and
	// this one starting.
	lookup, err := o.cache.Lookup(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if lookup.Hit {
		return &AnswerResult{Text: lookup.Response, WasCacheHit: true, Similarity: lookup.Similarity}, nil
	}

	result := o.chain.Generate(ctx, prompt)
	if result.Outcome != generation.OutcomeSuccess {
		o.logger.Debug("generation failed", zap.Int("attempts", len(result.Attempts)))
		res := o.fallback(prompt, result.Outcome.String(), result.Err)
		return &res, nil
	}

	if _, err := o.cache.Insert(ctx, prompt, result.Text); err != nil {
		if !errors.Is(err, vectorstore.ErrCapacityExhausted) {
			return nil, fmt.Errorf("cache insert: %w", err)
		}
		o.logger.Warn("cache full, answer not stored", zap.Int("entries", o.cache.Stats().EntryCount))
	}
	o.logger.Info("answer generated",
		zap.String("provider", result.Provider),
		zap.String("model", result.Model),
	)
	return &AnswerResult{
		Text:         result.Text,
		ProviderUsed: result.Provider,
		ModelUsed:    result.Model,
	}, nil
}

// fallback never touches the cache.
func (o *Orchestrator) fallback(prompt, reason string, err error) AnswerResult {
	text, topic := o.synth.RespondTopic(prompt)
	o.metrics.ObserveFallback(string(topic))
	o.logger.Warn("serving fallback response",
		zap.String("reason", reason),
		zap.String("topic", string(topic)),
		zap.Error(err),
	)
	return AnswerResult{Text: text, IsFallback: true, Topic: topic}
}

// Stats returns a snapshot of the cache.
func (o *Orchestrator) Stats() semanticcache.Stats {
	return o.cache.Stats()
}

// Clear empties the cache.
func (o *Orchestrator) Clear(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// ListAgents maps agent names to their descriptions.
func (o *Orchestrator) ListAgents() map[string]string {
	return o.agents.Descriptions()
}
