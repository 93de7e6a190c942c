// Package agent runs the tool-calling loop: the model decides which tools
// to use, Genkit executes them, and the loop continues until the model
// produces a final answer or the turn budget runs out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// DefaultMaxTurns bounds the tool-calling loop. Each turn is one model
// call plus its tool executions.
const DefaultMaxTurns = 5

const systemPrompt = `You are an expert financial research assistant.
Your job is to answer user questions accurately by selecting the correct tool for the task.
Today's date: %s

### CRITICAL: COLLECTION SELECTION RULES
The user message may include a [System Note] indicating their document collection preference.
- If the System Note says a COLLECTION IS SELECTED:
  * You MUST use searchDocuments FIRST and ONLY.
  * Do NOT use webSearch even if searchDocuments returns no results.
  * If searchDocuments returns 'not found' or irrelevant info, your final answer must simply state that the information was not found in the documents.
  * Pass the collection names as the companyNames parameter to searchDocuments.
- If there is no System Note:
  * Prefer searchDocuments for questions about the ingested companies.
  * Use webSearch only for live or current information.

### TOOL SELECTION GUIDELINES
1. searchDocuments:
   * Use for queries about company filings (10-K, 10-Q, annual reports), historical data, specific reports.
   * The tool searches internal documents - NOT the internet.
2. webSearch:
   * Use ONLY when the query asks for 'latest', 'current', 'today's' information or news.
3. calculator:
   * Use for math calculations. Can be combined with searchDocuments results.

### RESPONSE FORMATTING RULES (VERY IMPORTANT)
- Be EXTREMELY CONCISE. Short paragraphs. Bullet points.
- NO fluff. Get straight to the answer.
- Use clean, simple English. NO technical markup.
- NO asterisks for bold (** or *).
- NO LaTeX expressions.
- NO raw citation markers like [0†source] - remove these.
- If searchDocuments provided page references, include a '## References' section at the end.`

// Agent is the tool-calling brain. It is stateless across calls; each Ask
// is an independent conversation.
type Agent struct {
	g         *genkit.Genkit
	toolRefs  []ai.ToolRef
	modelName string
	maxTurns  int
	logger    *slog.Logger
}

// New creates an Agent over previously registered tools. maxTurns <= 0
// falls back to DefaultMaxTurns; a nil logger to slog.Default.
func New(g *genkit.Genkit, toolRefs []ai.ToolRef, modelName string, maxTurns int, logger *slog.Logger) *Agent {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{g: g, toolRefs: toolRefs, modelName: modelName, maxTurns: maxTurns, logger: logger}
}

// Ask answers a query. Collection hints, when present, are surfaced to the
// model as a System Note so it routes the question through the document
// tool with those collections.
func (a *Agent) Ask(ctx context.Context, query string, hints []string) (string, error) {
	message := query
	if len(hints) > 0 {
		message = fmt.Sprintf("[System Note: collection selected: %s]\n%s", strings.Join(hints, ", "), query)
	}

	a.logger.Debug("running agent",
		"tools", len(a.toolRefs),
		"maxTurns", a.maxTurns,
		"queryLength", len(query))

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(fmt.Sprintf(systemPrompt, time.Now().Format("2006-01-02"))),
		ai.WithPrompt(message),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("agent generation: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("agent returned an empty answer")
	}
	return answer, nil
}
