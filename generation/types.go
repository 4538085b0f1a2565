// Package generation walks an ordered list of text-generation providers and
// models until one of them produces a non-empty answer.
package generation

import (
	"context"
	"time"
)

// Backend kinds.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
)

// ProviderSpec describes one provider and the models to try on it, in order.
type ProviderSpec struct {
	Name          string
	Kind          string
	Endpoint      string
	Timeout       time.Duration
	Models        []string
	MaxTokens     int
	Temperature   float64
	ContextWindow int
}

// Request is a single generation call.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Backend performs one generation request without retrying.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (string, error)

func (f BackendFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Provider pairs a spec with the backend that serves it.
type Provider struct {
	Spec    ProviderSpec
	Backend Backend
}

// Outcome is the overall result of a chain run.
type Outcome int

const (
	// OutcomeSuccess means a candidate returned non-empty text.
	OutcomeSuccess Outcome = iota
	// OutcomeProviderError means the caller's context ended the run.
	OutcomeProviderError
	// OutcomeExhausted means every candidate failed.
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeProviderError:
		return "provider_error"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FailureKind classifies a failed attempt.
type FailureKind string

const (
	FailureTimeout          FailureKind = "timeout"
	FailureTransport        FailureKind = "transport"
	FailureModelUnavailable FailureKind = "model_unavailable"
	FailurePromptTooLong    FailureKind = "prompt_too_long"
	FailureEmpty            FailureKind = "empty"
	FailureCircuitOpen      FailureKind = "circuit_open"
	FailureCanceled         FailureKind = "canceled"
)

// Attempt records one candidate tried by the chain. Kind is empty for the
// successful attempt.
type Attempt struct {
	Provider string
	Model    string
	Kind     FailureKind
	Err      error
	Duration time.Duration
}

// Result is what Chain.Generate returns. Text, Model and Provider are set on
// success. Provider and Err are set for OutcomeProviderError.
type Result struct {
	Outcome  Outcome
	Text     string
	Model    string
	Provider string
	Err      error
	Attempts []Attempt
}
