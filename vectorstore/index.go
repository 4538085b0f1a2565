package vectorstore

import (
	"context"

	"github.com/botirk38/agentcache/types"
)

// Index is a nearest-neighbour strategy over unit vectors. IDs are added in
// increasing order. The Store serializes Add and Reset against Nearest.
type Index interface {
	// Add indexes vec under id.
	Add(ctx context.Context, id types.EntryID, vec types.Embedding) error
	// Nearest returns the ID with the highest inner product against vec and
	// its score. ok is false when the index is empty.
	Nearest(ctx context.Context, vec types.Embedding) (id types.EntryID, score float64, ok bool, err error)
	// Reset removes every vector.
	Reset(ctx context.Context) error
	// Len returns the number of indexed vectors.
	Len() int
	// Close releases any resources held by the index.
	Close() error
}

// NewIndex creates an index of the specified type.
func NewIndex(ctx context.Context, indexType types.IndexType, config types.IndexConfig) (Index, error) {
	switch indexType {
	case types.IndexFlat, "":
		return NewFlatIndex(), nil
	case types.IndexRedis:
		return NewRedisIndex(ctx, config)
	default:
		return nil, ErrUnsupportedIndex
	}
}
