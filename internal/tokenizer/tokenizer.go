// Package tokenizer adapts a BPE tokenizer to the token-based chunking
// pipeline.
//
// Chunk boundaries are computed in token space, so the encoder and decoder
// must be a stable, deterministic inverse pair for a given model
// identifier. The default implementation uses the tiktoken BPE tables.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec converts text to and from an integer token sequence.
type Codec interface {
	// Encode converts text into a token ID sequence.
	Encode(text string) []int

	// Decode converts a token ID sequence back to text.
	// Decode(Encode(s)) == s for any s the encoder accepts.
	Decode(tokens []int) string

	// Count returns the number of tokens Encode would produce.
	Count(text string) int
}

// Tiktoken is a Codec backed by a tiktoken BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ Codec = (*Tiktoken)(nil)

// NewTiktoken creates a Codec for the encoding used by the given model
// (e.g. "gpt-4" selects cl100k_base). An unknown model is a configuration
// error surfaced at construction, not at chunk time.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer for model %q: %w", model, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode converts text into BPE token IDs.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts BPE token IDs back to text.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Count returns the token count of text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
