package chunker

import "errors"

var (
	ErrInvalidChunkSize    = errors.New("chunk size must be positive")
	ErrChunkSizeExceedsMax = errors.New("chunk size cannot exceed max tokens")
	ErrInvalidOverlap      = errors.New("overlap must be non-negative")
	ErrOverlapTooLarge     = errors.New("overlap must be less than chunk size")
	ErrInvalidMaxTokens    = errors.New("max tokens must be positive")
	ErrEmptyText           = errors.New("cannot chunk empty text")
	ErrTokenizerFailed     = errors.New("tokenization failed")
)
