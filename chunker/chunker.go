// Package chunker splits inputs that exceed an embedding model's token limit
// into overlapping token windows.
package chunker

// Chunker splits text into chunks small enough to embed.
type Chunker interface {
	// Split returns the text unchanged as a single chunk when it fits within
	// MaxTokens, and overlapping windows of ChunkSize tokens otherwise.
	Split(text string) ([]Chunk, error)

	// CountTokens counts the number of tokens in the given text.
	CountTokens(text string) (int, error)
}

// Config holds the token limits used when splitting.
type Config struct {
	// MaxTokens is the embedding model's input limit and the threshold that
	// triggers splitting. Default: 8191 (text-embedding-3-small).
	MaxTokens int

	// ChunkSize is the target number of tokens per window. Default: 512.
	ChunkSize int

	// ChunkOverlap is the number of tokens shared between adjacent windows.
	// Default: 50.
	ChunkOverlap int
}

// Chunk is one window of the original text.
type Chunk struct {
	Text       string
	StartToken int
	EndToken   int
	Index      int
}

// DefaultConfig returns the default splitting configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    8191,
		ChunkSize:    512,
		ChunkOverlap: 50,
	}
}

// WithMaxTokens returns a copy of c with MaxTokens replaced, shrinking
// ChunkSize and ChunkOverlap when they would no longer fit.
func (c Config) WithMaxTokens(maxTokens int) Config {
	if maxTokens <= 0 {
		return c
	}
	c.MaxTokens = maxTokens
	if c.ChunkSize > maxTokens {
		c.ChunkSize = maxTokens
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	return c
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.ChunkSize > c.MaxTokens {
		return ErrChunkSizeExceedsMax
	}
	if c.ChunkOverlap < 0 {
		return ErrInvalidOverlap
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return ErrOverlapTooLarge
	}
	return nil
}
