package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/botirk38/agentcache/agent"
	"github.com/botirk38/agentcache/fallback"
	"github.com/botirk38/agentcache/generation"
	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/options"
	"github.com/botirk38/agentcache/semanticcache"
	"github.com/botirk38/agentcache/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// constProvider maps every text to the same vector unless told to fail.
type constProvider struct {
	err error
}

func (p constProvider) EmbedText(context.Context, string) (types.Embedding, error) {
	if p.err != nil {
		return nil, p.err
	}
	return types.Embedding{1, 0}, nil
}

func (constProvider) Close() {}

// axisProvider maps prompts ending in "first" and everything else onto
// orthogonal vectors.
type axisProvider struct{}

func (axisProvider) EmbedText(_ context.Context, text string) (types.Embedding, error) {
	if strings.HasSuffix(text, "first") {
		return types.Embedding{1, 0}, nil
	}
	return types.Embedding{0, 1}, nil
}

func (axisProvider) Close() {}

func newCache(t *testing.T, p types.EmbeddingProvider, opts ...options.Option) *semanticcache.Cache {
	t.Helper()
	opts = append([]options.Option{
		options.WithCustomProvider(p),
		options.WithDimension(2),
	}, opts...)
	c, err := semanticcache.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newChain(t *testing.T, fn generation.BackendFunc, timeout time.Duration, opts ...generation.ChainOption) *generation.Chain {
	t.Helper()
	opts = append([]generation.ChainOption{generation.WithLogger(zaptest.NewLogger(t))}, opts...)
	chain, err := generation.NewChain([]generation.Provider{{
		Spec: generation.ProviderSpec{
			Name:    "together",
			Kind:    generation.KindOpenAI,
			Timeout: timeout,
			Models:  []string{"m1", "m2"},
		},
		Backend: fn,
	}}, opts...)
	require.NoError(t, err)
	return chain
}

func newOrchestrator(t *testing.T, cache Cache, chain Generator, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithMetrics(metrics.New(nil))}, opts...)
	o, err := New(cache, chain, fallback.New(fallback.WithSelector(fallback.NewRoundRobinSelector())), nil, opts...)
	require.NoError(t, err)
	return o
}

func TestNew_Validation(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) { return "x", nil }, time.Second)

	_, err := New(nil, chain, nil, nil)
	assert.Error(t, err)
	_, err = New(newCache(t, constProvider{}), nil, nil, nil)
	assert.Error(t, err)
}

func TestAnswer_MissThenHit(t *testing.T) {
	var calls atomic.Int32
	prompts := make(chan string, 1)
	chain := newChain(t, func(_ context.Context, req generation.Request) (string, error) {
		calls.Add(1)
		prompts <- req.Prompt
		return "1. Buy milk", nil
	}, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	first, err := o.Answer(context.Background(), agent.Planning, "shopping")
	require.NoError(t, err)
	assert.Equal(t, "Plan the following task: shopping", <-prompts)
	assert.Equal(t, &AnswerResult{
		Agent:        agent.Planning,
		Text:         "1. Buy milk",
		ProviderUsed: "together",
		ModelUsed:    "m1",
	}, first)
	assert.Equal(t, 1, o.Stats().EntryCount)

	second, err := o.Answer(context.Background(), agent.Planning, "shopping")
	require.NoError(t, err)
	assert.True(t, second.WasCacheHit)
	assert.Equal(t, "1. Buy milk", second.Text)
	assert.InDelta(t, 1.0, second.Similarity, 1e-9)
	assert.Empty(t, second.ProviderUsed)
	assert.Empty(t, second.ModelUsed)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, o.Stats().EntryCount)
}

func TestAnswer_FallsThroughModels(t *testing.T) {
	chain := newChain(t, func(_ context.Context, req generation.Request) (string, error) {
		if req.Model == "m1" {
			return "", generation.ErrModelUnavailable
		}
		return "summary", nil
	}, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	res, err := o.Answer(context.Background(), agent.Summarization, "a long text")
	require.NoError(t, err)
	assert.Equal(t, "m2", res.ModelUsed)
	assert.False(t, res.IsFallback)
}

func TestAnswer_ExhaustedUsesFallback(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) {
		return "", generation.ErrModelUnavailable
	}, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	res, err := o.Answer(context.Background(), agent.Summarization, "the history of tea")
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.False(t, res.WasCacheHit)
	assert.Equal(t, fallback.TopicGeneric, res.Topic)
	assert.Contains(t, res.Text, "Summarize this: the history of tea")
	assert.Empty(t, res.ProviderUsed)
	assert.Empty(t, res.ModelUsed)
	assert.Equal(t, 0, o.Stats().EntryCount)

	// Fallbacks are never cached, so the next call generates again.
	again, err := o.Answer(context.Background(), agent.Summarization, "the history of tea")
	require.NoError(t, err)
	assert.True(t, again.IsFallback)
	assert.Equal(t, 0, o.Stats().EntryCount)
}

func TestAnswer_TopicFallback(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) {
		return "", errors.New("connection refused")
	}, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	res, err := o.Answer(context.Background(), agent.Retrieval, "What is electricity?")
	require.NoError(t, err)
	assert.Equal(t, fallback.TopicEnergy, res.Topic)
	assert.Contains(t, fallback.Variants(fallback.TopicEnergy, ""), res.Text)
}

func TestAnswer_CallerDeadlineUsesFallback(t *testing.T) {
	finished := make(chan struct{})
	chain := newChain(t, func(ctx context.Context, _ generation.Request) (string, error) {
		defer close(finished)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return "late answer", nil
		}
	}, time.Minute, generation.WithLogger(zap.NewNop()))
	o := newOrchestrator(t, newCache(t, constProvider{}), chain, WithLogger(zap.NewNop()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := o.Answer(ctx, agent.Planning, "a trip")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.True(t, res.IsFallback)
	assert.Equal(t, 0, o.Stats().EntryCount)

	// The generation keeps running for other callers and its answer is cached.
	<-finished
	require.Eventually(t, func() bool { return o.Stats().EntryCount == 1 }, time.Second, 10*time.Millisecond)
	again, err := o.Answer(context.Background(), agent.Planning, "a trip")
	require.NoError(t, err)
	assert.True(t, again.WasCacheHit)
	assert.Equal(t, "late answer", again.Text)
}

func TestAnswer_WaiterDeadlineIsHonoured(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	chain := newChain(t, func(context.Context, generation.Request) (string, error) {
		close(started)
		<-release
		return "slow answer", nil
	}, 5*time.Second, generation.WithLogger(zap.NewNop()))
	o := newOrchestrator(t, newCache(t, constProvider{}), chain, WithLogger(zap.NewNop()))

	leader := make(chan *AnswerResult, 1)
	go func() {
		res, err := o.Answer(context.Background(), agent.Retrieval, "same question")
		if err != nil {
			t.Errorf("leader failed: %v", err)
		}
		leader <- res
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := o.Answer(ctx, agent.Retrieval, "same question")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.True(t, res.IsFallback)
	assert.Equal(t, agent.Retrieval, res.Agent)

	close(release)
	first := <-leader
	require.NotNil(t, first)
	assert.False(t, first.IsFallback)
	assert.Equal(t, "slow answer", first.Text)
	assert.Equal(t, 1, o.Stats().EntryCount)
}

func TestAnswer_LeaderCancelDoesNotFailWaiters(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	chain := newChain(t, func(ctx context.Context, _ generation.Request) (string, error) {
		close(started)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-release:
			return "real answer", nil
		}
	}, 5*time.Second, generation.WithLogger(zap.NewNop()))
	o := newOrchestrator(t, newCache(t, constProvider{}), chain, WithLogger(zap.NewNop()))

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leader := make(chan *AnswerResult, 1)
	go func() {
		res, err := o.Answer(leaderCtx, agent.Retrieval, "same question")
		if err != nil {
			t.Errorf("leader failed: %v", err)
		}
		leader <- res
	}()
	<-started

	waiter := make(chan *AnswerResult, 1)
	go func() {
		res, err := o.Answer(context.Background(), agent.Retrieval, "same question")
		if err != nil {
			t.Errorf("waiter failed: %v", err)
		}
		waiter <- res
	}()

	time.Sleep(30 * time.Millisecond)
	cancelLeader()
	first := <-leader
	require.NotNil(t, first)
	assert.True(t, first.IsFallback)

	close(release)
	second := <-waiter
	require.NotNil(t, second)
	assert.False(t, second.IsFallback)
	assert.Equal(t, "real answer", second.Text)
	assert.Equal(t, 1, o.Stats().EntryCount)
}

func TestAnswer_UnknownAgent(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) { return "x", nil }, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	_, err := o.Answer(context.Background(), "poetry", "roses")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestAnswer_CacheErrorIsReturned(t *testing.T) {
	var calls atomic.Int32
	chain := newChain(t, func(context.Context, generation.Request) (string, error) {
		calls.Add(1)
		return "x", nil
	}, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{err: errors.New("embedding service down")}), chain)

	_, err := o.Answer(context.Background(), agent.Planning, "anything")
	assert.ErrorIs(t, err, semanticcache.ErrEmbeddingUnavailable)
	assert.EqualValues(t, 0, calls.Load())
}

// failingInsertCache hits nothing and refuses inserts.
type failingInsertCache struct {
	*semanticcache.Cache
}

func (failingInsertCache) Insert(context.Context, string, string) (types.EntryID, error) {
	return 0, fmt.Errorf("%w: embedding service down", semanticcache.ErrEmbeddingUnavailable)
}

func TestAnswer_InsertErrorIsReturned(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) { return "x", nil }, time.Second)
	o := newOrchestrator(t, failingInsertCache{newCache(t, constProvider{})}, chain)

	_, err := o.Answer(context.Background(), agent.Planning, "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, semanticcache.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "cache insert")
}

func TestAnswer_FullCacheStillAnswers(t *testing.T) {
	var calls atomic.Int32
	chain := newChain(t, func(_ context.Context, req generation.Request) (string, error) {
		calls.Add(1)
		return "answer to " + req.Prompt, nil
	}, time.Second)
	o := newOrchestrator(t, newCache(t, axisProvider{}, options.WithCapacity(1)), chain)

	first, err := o.Answer(context.Background(), agent.Planning, "first")
	require.NoError(t, err)
	assert.False(t, first.IsFallback)
	assert.Equal(t, 1, o.Stats().EntryCount)

	second, err := o.Answer(context.Background(), agent.Planning, "second")
	require.NoError(t, err)
	assert.False(t, second.IsFallback)
	assert.Equal(t, "answer to Plan the following task: second", second.Text)
	assert.Equal(t, "together", second.ProviderUsed)
	assert.Equal(t, 1, o.Stats().EntryCount)

	// The first answer is still served from the cache.
	hit, err := o.Answer(context.Background(), agent.Planning, "first")
	require.NoError(t, err)
	assert.True(t, hit.WasCacheHit)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAnswer_ConcurrentMissesCollapse(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	chain := newChain(t, func(context.Context, generation.Request) (string, error) {
		calls.Add(1)
		<-release
		return "shared answer", nil
	}, 5*time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Answer(context.Background(), agent.Retrieval, "same question")
			if err != nil {
				t.Errorf("answer failed: %v", err)
				return
			}
			results <- res.Text
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for text := range results {
		assert.Equal(t, "shared answer", text)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, o.Stats().EntryCount)
}

func TestClearAndListAgents(t *testing.T) {
	chain := newChain(t, func(context.Context, generation.Request) (string, error) { return "x", nil }, time.Second)
	o := newOrchestrator(t, newCache(t, constProvider{}), chain)

	for _, q := range []string{"a", "b"} {
		_, err := o.Answer(context.Background(), agent.Planning, q)
		require.NoError(t, err)
	}
	require.NoError(t, o.Clear(context.Background()))
	assert.Equal(t, 0, o.Stats().EntryCount)

	res, err := o.Answer(context.Background(), agent.Planning, "a")
	require.NoError(t, err)
	assert.False(t, res.WasCacheHit)

	agents := o.ListAgents()
	assert.Len(t, agents, 3)
	assert.Contains(t, agents, agent.Summarization)
}
