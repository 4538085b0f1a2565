package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/botirk38/agentcache/metrics"
)

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records one attempt counter per candidate tried.
func WithMetrics(m *metrics.Metrics) ChainOption {
	return func(c *Chain) {
		c.metrics = m
	}
}

// WithCircuitBreaker guards every provider/model candidate with its own
// breaker. An open breaker skips the candidate.
func WithCircuitBreaker(config BreakerConfig) ChainOption {
	return func(c *Chain) {
		c.breakerConfig = &config
	}
}

type candidate struct {
	provider Provider
	model    string
	breaker  *gobreaker.CircuitBreaker
}

// Chain tries candidates strictly in order: providers as given, and each
// provider's models as listed. Every candidate gets one request bounded by
// its provider's timeout.
type Chain struct {
	candidates    []candidate
	logger        *zap.Logger
	metrics       *metrics.Metrics
	breakerConfig *BreakerConfig
}

// NewChain creates a chain over providers.
func NewChain(providers []Provider, opts ...ChainOption) (*Chain, error) {
	c := &Chain{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	for i, p := range providers {
		if p.Backend == nil {
			return nil, fmt.Errorf("provider %d (%s) has no backend", i, p.Spec.Name)
		}
		for _, model := range p.Spec.Models {
			cand := candidate{provider: p, model: model}
			if c.breakerConfig != nil {
				cand.breaker = newBreaker(p.Spec.Name+"/"+model, *c.breakerConfig, c.logger)
			}
			c.candidates = append(c.candidates, cand)
		}
	}
	if len(c.candidates) == 0 {
		return nil, ErrNoProviders
	}
	return c, nil
}

// Generate returns the first non-empty answer. It stops issuing requests as
// soon as ctx is done and reports OutcomeProviderError in that case.
func (c *Chain) Generate(ctx context.Context, prompt string) Result {
	var attempts []Attempt

	for _, cand := range c.candidates {
		spec := cand.provider.Spec
		if err := ctx.Err(); err != nil {
			return c.aborted(err, attempts)
		}

		start := time.Now()
		text, err := c.attempt(ctx, cand, prompt)
		elapsed := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{Provider: spec.Name, Model: cand.model, Duration: elapsed})
			c.metrics.ObserveGenerationAttempt(spec.Name, cand.model, OutcomeSuccess.String())
			c.logger.Debug("generation succeeded",
				zap.String("provider", spec.Name),
				zap.String("model", cand.model),
				zap.Duration("elapsed", elapsed),
			)
			return Result{
				Outcome:  OutcomeSuccess,
				Text:     text,
				Model:    cand.model,
				Provider: spec.Name,
				Attempts: attempts,
			}
		}

		kind := Classify(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			kind = FailureCanceled
			err = ctxErr
		}
		attempts = append(attempts, Attempt{Provider: spec.Name, Model: cand.model, Kind: kind, Err: err, Duration: elapsed})
		c.metrics.ObserveGenerationAttempt(spec.Name, cand.model, string(kind))

		if kind == FailureCanceled {
			return c.aborted(err, attempts)
		}

		c.logger.Warn("generator failed",
			zap.String("provider", spec.Name),
			zap.String("model", cand.model),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	c.logger.Warn("all generation candidates failed", zap.Int("attempts", len(attempts)))
	return Result{Outcome: OutcomeExhausted, Attempts: attempts}
}

// aborted reports the last provider tried, or none if the caller gave up
// before the first attempt.
func (c *Chain) aborted(err error, attempts []Attempt) Result {
	var provider string
	if n := len(attempts); n > 0 {
		provider = attempts[n-1].Provider
	}
	c.logger.Info("generation aborted by caller", zap.String("provider", provider), zap.Error(err))
	return Result{
		Outcome:  OutcomeProviderError,
		Provider: provider,
		Err:      err,
		Attempts: attempts,
	}
}

func (c *Chain) attempt(ctx context.Context, cand candidate, prompt string) (string, error) {
	spec := cand.provider.Spec
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	call := func() (string, error) {
		text, err := cand.provider.Backend.Generate(ctx, Request{
			Model:       cand.model,
			Prompt:      prompt,
			MaxTokens:   spec.MaxTokens,
			Temperature: spec.Temperature,
		})
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}

	if cand.breaker == nil {
		return call()
	}

	out, err := cand.breaker.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		return "", err
	}
	text, ok := out.(string)
	if !ok {
		return "", errors.New("unexpected breaker result")
	}
	return text, nil
}

// Len returns the number of provider/model candidates.
func (c *Chain) Len() int {
	return len(c.candidates)
}
