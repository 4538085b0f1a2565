package types

import (
	"context"
	"time"
)

// Embedding is a fixed-length semantic vector.
type Embedding = []float64

// EntryID identifies an entry by its insertion ordinal within a store.
type EntryID int

// Entry holds a cached query, its response and the normalized query embedding.
// Entries are immutable once stored.
type Entry struct {
	ID        EntryID
	Query     string
	Response  string
	Embedding Embedding
	CreatedAt time.Time
}

// EmbeddingProvider defines the interface all embedding backends must satisfy.
type EmbeddingProvider interface {
	// EmbedText turns a piece of text into its embedding vector.
	EmbedText(ctx context.Context, text string) (Embedding, error)
	// Close frees any resources held by the provider.
	Close()
}

// TokenLimiter is implemented by embedding providers that know the maximum
// input size of their model.
type TokenLimiter interface {
	GetMaxTokens() int
}

// IndexType represents the nearest-neighbour strategy backing a vector store.
type IndexType string

const (
	IndexFlat  IndexType = "flat"
	IndexRedis IndexType = "redis"
)

// IndexConfig provides configuration options for vector store indexes.
type IndexConfig struct {
	// For Redis
	ConnectionString string
	Username         string
	Password         string
	Database         int
	Prefix           string

	// Dimensions is filled in by the store.
	Dimensions int
}

// ProviderType represents the type of embedding provider
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
)
