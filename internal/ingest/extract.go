package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/finsight0/finsight/internal/chunker"
)

// Extractor turns a source file into pages of plain text. PDF text
// extraction happens upstream; the pipeline consumes its output.
type Extractor interface {
	// Supports reports whether this extractor handles the file.
	Supports(path string) bool

	// Extract reads the file and returns its pages in order.
	Extract(path string) ([]chunker.Page, error)
}

// PlainTextExtractor treats .txt and .md files as a single page.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Supports(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md")
}

func (PlainTextExtractor) Extract(path string) ([]chunker.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return []chunker.Page{{Number: 1, Text: string(data)}}, nil
}

// PagesJSONExtractor reads pre-extracted PDF text in the .pages.json
// format produced by the extraction step: a JSON array of
// {"page": n, "text": "..."} objects.
type PagesJSONExtractor struct{}

func (PagesJSONExtractor) Supports(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".pages.json")
}

func (PagesJSONExtractor) Extract(path string) ([]chunker.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []struct {
		Page int    `json:"page"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	pages := make([]chunker.Page, len(raw))
	for i, p := range raw {
		if p.Page <= 0 {
			return nil, fmt.Errorf("%s: page %d has invalid page number %d", path, i, p.Page)
		}
		pages[i] = chunker.Page{Number: p.Page, Text: p.Text}
	}
	return pages, nil
}

// DefaultExtractors returns the extractors the pipeline ships with.
func DefaultExtractors() []Extractor {
	return []Extractor{PagesJSONExtractor{}, PlainTextExtractor{}}
}

// SourceName strips the .pages.json suffix so chunk IDs and citations
// refer to the original document, not the extraction artifact.
func SourceName(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".pages.json") {
		return filename[:len(filename)-len(".pages.json")] + ".pdf"
	}
	return filename
}
