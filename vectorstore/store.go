// Package vectorstore holds cached query embeddings and answers exact or
// approximate nearest-neighbour queries over them.
package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/botirk38/agentcache/similarity"
	"github.com/botirk38/agentcache/types"
)

// Neighbor is the result of a nearest-neighbour query.
type Neighbor struct {
	Entry      types.Entry
	Similarity float64
}

// Option configures a Store.
type Option func(*Store) error

// WithIndex sets the nearest-neighbour index. The store takes ownership and
// resets it on Clear.
func WithIndex(index Index) Option {
	return func(s *Store) error {
		if index == nil {
			return fmt.Errorf("index cannot be nil")
		}
		s.index = index
		return nil
	}
}

// WithCapacity bounds the number of entries. Zero means unbounded.
func WithCapacity(capacity int) Option {
	return func(s *Store) error {
		if capacity < 0 {
			return ErrInvalidCapacity
		}
		s.capacity = capacity
		return nil
	}
}

// Store is an append-only collection of entries with a parallel index.
// Vectors are normalized on the way in so the index can rank by inner
// product. Only Insert and Clear take the write lock.
type Store struct {
	mu        sync.RWMutex
	dimension int
	capacity  int
	index     Index
	entries   []types.Entry
}

// New creates a store for embeddings of the given dimension.
func New(dimension int, opts ...Option) (*Store, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	s := &Store{dimension: dimension}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.index == nil {
		s.index = NewFlatIndex()
	}
	return s, nil
}

// Insert normalizes the embedding and appends a new entry. The entry is only
// appended once the index accepted the vector.
func (s *Store) Insert(ctx context.Context, embedding types.Embedding, query, response string) (types.EntryID, error) {
	vec, err := s.prepare(embedding)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 && len(s.entries) >= s.capacity {
		return 0, fmt.Errorf("%w: %d entries", ErrCapacityExhausted, s.capacity)
	}

	id := types.EntryID(len(s.entries))
	if err := s.index.Add(ctx, id, vec); err != nil {
		return 0, fmt.Errorf("failed to index entry %d: %w", id, err)
	}

	s.entries = append(s.entries, types.Entry{
		ID:        id,
		Query:     query,
		Response:  response,
		Embedding: vec,
		CreatedAt: time.Now(),
	})
	return id, nil
}

// Nearest returns the stored entry most similar to embedding. It reports
// false when the store is empty.
func (s *Store) Nearest(ctx context.Context, embedding types.Embedding) (Neighbor, bool, error) {
	vec, err := s.prepare(embedding)
	if err != nil {
		return Neighbor{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return Neighbor{}, false, nil
	}

	id, score, ok, err := s.index.Nearest(ctx, vec)
	if err != nil {
		return Neighbor{}, false, fmt.Errorf("nearest neighbour search failed: %w", err)
	}
	if !ok {
		return Neighbor{}, false, nil
	}
	if int(id) < 0 || int(id) >= len(s.entries) {
		return Neighbor{}, false, fmt.Errorf("%w: %d", ErrIndexInconsistent, id)
	}

	return Neighbor{Entry: copyEntry(s.entries[id]), Similarity: score}, true, nil
}

// Clear removes every entry and resets the index. Entry IDs restart at zero.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	s.entries = nil
	return nil
}

// Entry returns a copy of the entry with the given ID.
func (s *Store) Entry(id types.EntryID) (types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(id) < 0 || int(id) >= len(s.entries) {
		return types.Entry{}, false
	}
	return copyEntry(s.entries[id]), true
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the embedding dimension the store accepts.
func (s *Store) Dimension() int {
	return s.dimension
}

// Close releases the index.
func (s *Store) Close() error {
	return s.index.Close()
}

func (s *Store) prepare(embedding types.Embedding) (types.Embedding, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}
	return similarity.Normalize(embedding)
}

func copyEntry(e types.Entry) types.Entry {
	e.Embedding = append(types.Embedding(nil), e.Embedding...)
	return e
}
