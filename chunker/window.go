package chunker

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// WindowChunker splits text into fixed-size token windows using tiktoken's
// cl100k_base encoding, the encoding of OpenAI's embedding models.
type WindowChunker struct {
	config   Config
	encoding tokenizer.Codec
}

// New creates a WindowChunker with the given configuration.
func New(config Config) (*WindowChunker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk config: %w", err)
	}

	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	return &WindowChunker{config: config, encoding: enc}, nil
}

// Config returns the configuration the chunker was built with.
func (c *WindowChunker) Config() Config {
	return c.config
}

// CountTokens counts the number of tokens in the given text.
func (c *WindowChunker) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := c.encoding.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenizerFailed, err)
	}
	return len(ids), nil
}

// Split implements Chunker.
func (c *WindowChunker) Split(text string) ([]Chunk, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	tokens, _, err := c.encoding.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizerFailed, err)
	}

	total := len(tokens)
	if total <= c.config.MaxTokens {
		return []Chunk{{Text: text, StartToken: 0, EndToken: total, Index: 0}}, nil
	}

	stride := c.config.ChunkSize - c.config.ChunkOverlap
	chunks := make([]Chunk, 0, total/stride+1)
	for start := 0; start < total; start += stride {
		end := min(start+c.config.ChunkSize, total)

		chunkText, err := c.encoding.Decode(tokens[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to decode chunk %d: %w", len(chunks), err)
		}
		chunks = append(chunks, Chunk{
			Text:       chunkText,
			StartToken: start,
			EndToken:   end,
			Index:      len(chunks),
		})

		if end >= total {
			break
		}
	}

	return chunks, nil
}
