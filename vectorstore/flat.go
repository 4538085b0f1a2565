package vectorstore

import (
	"context"

	"github.com/botirk38/agentcache/similarity"
	"github.com/botirk38/agentcache/types"
)

// FlatIndex is an exact linear scan. Ties resolve to the lowest ID.
type FlatIndex struct {
	ids     []types.EntryID
	vectors []types.Embedding
}

// NewFlatIndex creates an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Add implements Index.
func (f *FlatIndex) Add(_ context.Context, id types.EntryID, vec types.Embedding) error {
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vec)
	return nil
}

// Nearest implements Index.
func (f *FlatIndex) Nearest(_ context.Context, vec types.Embedding) (types.EntryID, float64, bool, error) {
	if len(f.vectors) == 0 {
		return 0, 0, false, nil
	}

	best := 0
	bestScore := similarity.DotProductSimilarity(vec, f.vectors[0])
	for i := 1; i < len(f.vectors); i++ {
		// Strict comparison keeps the earliest of equal scores.
		if score := similarity.DotProductSimilarity(vec, f.vectors[i]); score > bestScore {
			best, bestScore = i, score
		}
	}
	return f.ids[best], bestScore, true, nil
}

// Reset implements Index.
func (f *FlatIndex) Reset(_ context.Context) error {
	f.ids = nil
	f.vectors = nil
	return nil
}

// Len implements Index.
func (f *FlatIndex) Len() int {
	return len(f.vectors)
}

// Close implements Index.
func (f *FlatIndex) Close() error {
	return nil
}
