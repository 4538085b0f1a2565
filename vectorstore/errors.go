package vectorstore

import "errors"

var (
	ErrInvalidDimension  = errors.New("dimension must be positive")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCapacityExhausted = errors.New("vector store capacity exhausted")
	ErrInvalidCapacity   = errors.New("capacity must be non-negative")
	ErrUnsupportedIndex  = errors.New("unsupported index type")
	ErrIndexInconsistent = errors.New("index returned an unknown entry")
)
