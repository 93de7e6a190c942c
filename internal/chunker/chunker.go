// Package chunker splits document text into overlapping, token-bounded
// chunks for embedding and retrieval.
//
// Chunking operates in token space: text is encoded, a fixed-size window
// slides over the token sequence with a configured overlap, and each
// window is decoded back to text. Chunking is applied independently per
// page, so chunk metadata always carries an accurate page number and no
// chunk ever crosses a page boundary. That is a policy choice: page-scoped
// chunks keep citations exact at the cost of splitting sentences that
// happen to span pages.
//
// Chunk identity is deterministic: the same namespace, document, page and
// configuration always produce the same chunk IDs, which makes
// re-ingestion an idempotent upsert.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/finsight0/finsight/internal/tokenizer"
)

// ErrInvalidWindow indicates the window/overlap pair cannot produce
// forward progress. Callers validating config at startup should treat
// this as fatal.
var ErrInvalidWindow = errors.New("chunker: window must be greater than overlap, overlap must not be negative")

// Config holds chunking parameters.
type Config struct {
	// Window is the chunk size in tokens.
	Window int

	// Overlap is the number of tokens shared by consecutive chunks.
	Overlap int
}

// DefaultConfig returns the chunking parameters used for ingestion:
// a 512-token window with 64 tokens of overlap.
func DefaultConfig() Config {
	return Config{Window: 512, Overlap: 64}
}

// Page is one page of extracted document text, as produced by an external
// text-extraction step.
type Page struct {
	Number int // 1-based page number
	Text   string
}

// Chunk is a page-scoped, token-bounded slice of a document.
// Chunks are immutable once created.
type Chunk struct {
	Text       string
	Document   string // source file name
	Page       int    // 1-based page number
	Index      int    // 1-based chunk index within the page
	TokenCount int
}

// ID returns the deterministic vector-store identifier for the chunk
// within a namespace: {namespace}_{docslug}_p{page}_c{index}.
func (c Chunk) ID(namespace string) string {
	return fmt.Sprintf("%s_%s_p%d_c%d", namespace, Slugify(c.Document), c.Page, c.Index)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify creates an identifier-safe name from a string: lower-cased,
// with runs of non-alphanumeric characters collapsed to a single
// underscore.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugPattern.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Split divides text into overlapping chunks of at most cfg.Window tokens.
//
// The window advances by step = Window - Overlap, so consecutive chunks
// share exactly Overlap tokens; the final chunk may be shorter. Every
// token belongs to at least one chunk, and no empty chunk is emitted.
// A text of at most Window tokens is returned as a single chunk.
func Split(codec tokenizer.Codec, text string, cfg Config) ([]string, error) {
	if cfg.Overlap < 0 || cfg.Window <= cfg.Overlap {
		return nil, fmt.Errorf("%w: window=%d overlap=%d", ErrInvalidWindow, cfg.Window, cfg.Overlap)
	}

	tokens := codec.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) <= cfg.Window {
		return []string{codec.Decode(tokens)}, nil
	}

	step := cfg.Window - cfg.Overlap
	chunks := make([]string, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := min(start+cfg.Window, len(tokens))
		chunks = append(chunks, codec.Decode(tokens[start:end]))
	}
	return chunks, nil
}

// SplitPages chunks each page of a document independently.
//
// The chunk index restarts at 1 on every page and the token count of each
// chunk is recorded; every count equals cfg.Window except possibly the
// last chunk of a page. Pages with no text yield no chunks.
func SplitPages(codec tokenizer.Codec, document string, pages []Page, cfg Config) ([]Chunk, error) {
	var chunks []Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}

		pieces, err := Split(codec, text, cfg)
		if err != nil {
			return nil, err
		}

		for i, piece := range pieces {
			chunks = append(chunks, Chunk{
				Text:       piece,
				Document:   document,
				Page:       page.Number,
				Index:      i + 1,
				TokenCount: codec.Count(piece),
			})
		}
	}
	return chunks, nil
}
