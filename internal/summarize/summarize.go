// Package summarize turns ranked chunks into a grounded answer with a
// references section.
//
// The model sees only the retrieved chunks, each prefixed with its source
// and page, and is instructed to answer strictly from that context.
// Generation runs at temperature zero; a failure is returned to the caller
// rather than retried, since the answer path surfaces a terminal message
// for it.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/finsight0/finsight/internal/retrieval"
)

// NoAnswerReply is what the model is told to return when the context does
// not contain the answer. Kept as a constant so callers can detect it.
const NoAnswerReply = "The provided documents do not contain this information."

const systemPrompt = `You are a financial analysis assistant. Your role is to provide EXTREMELY CONCISE and direct answers based *only* on the provided context.

INSTRUCTIONS:
1. ANSWER LIMIT: 3-4 SENTENCES MAX. Be direct. No fluff.
2. Base your answer strictly on the text provided in the CONTEXT.
3. If the context does not contain the answer, reply with: "` + NoAnswerReply + `"
4. FOLLOW FORMATTING:
   - Use headings (##) and bullet points (` + "`- `" + `) for lists.
   - NO double asterisks (**text**) for bolding. Plain text only.
   - NO LaTeX. Explain math simply.
   - Tables: Text left-aligned, numbers right-aligned.`

// Summarizer generates answers from retrieval results.
type Summarizer struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New creates a Summarizer bound to a model. A nil logger falls back to
// slog.Default.
func New(g *genkit.Genkit, modelName string, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{g: g, modelName: modelName, logger: logger}
}

// Summarize answers the query from the ranked chunks and appends the
// references section. Generation errors are returned as-is; there is no
// fallback answer.
func (s *Summarizer) Summarize(ctx context.Context, query string, result retrieval.Result) (string, error) {
	userPrompt := fmt.Sprintf("CONTEXT:\n%s\n\n---\nQUESTION:\n%s\n\n---\nFINAL ANSWER:",
		ContextBlock(result.Chunks), query)

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(userPrompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	s.logger.Debug("generated summary", "chars", len(answer), "chunks", len(result.Chunks))

	return answer + "\n\n---\n" + References(result.Citations), nil
}

// ContextBlock renders ranked chunks as the model's context: one
// Source/Page/Text block per chunk, separated by blank lines, in rank
// order.
func ContextBlock(chunks []retrieval.Ranked) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("Source: %s\nPage: %d\nText:\n%s", c.Source, c.Page, c.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// References renders the citation list appended to every answer. Sources
// are reduced to their base file name.
func References(citations []retrieval.Citation) string {
	var b strings.Builder
	b.WriteString("## References\n")
	for _, c := range citations {
		fmt.Fprintf(&b, "- %s (Page: %d)\n", filepath.Base(c.Source), c.Page)
	}
	return strings.TrimRight(b.String(), "\n")
}
