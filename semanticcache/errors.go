package semanticcache

import (
	"errors"

	"github.com/botirk38/agentcache/options"
)

var (
	// ErrDegenerateEmbedding is returned when the provider yields a vector
	// that cannot be normalized.
	ErrDegenerateEmbedding = errors.New("embedding has zero magnitude")
	// ErrEmbeddingUnavailable wraps embedding provider failures.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrInvalidThreshold     = options.ErrInvalidThreshold
)
