// Package tools defines the agent-callable tools: document search over the
// ingested collections, live web search and a calculator.
//
// Tool handlers return their soft failures as strings instead of errors.
// The model reads those messages and can recover (rephrase, pick another
// tool); a Go error would abort the whole generation turn.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/namespace"
	"github.com/finsight0/finsight/internal/retrieval"
	"github.com/finsight0/finsight/internal/search"
)

// Tool name constants registered with Genkit.
const (
	SearchDocumentsName = "searchDocuments"
	WebSearchName       = "webSearch"
	CalculatorName      = "calculator"
)

// Retriever retrieves and ranks chunks across namespaces.
// *retrieval.Engine implements it.
type Retriever interface {
	RetrieveAndRank(ctx context.Context, query string, namespaces []string) (retrieval.Result, error)
}

// Summarizer turns a retrieval result into a cited answer.
// *summarize.Summarizer implements it.
type Summarizer interface {
	Summarize(ctx context.Context, query string, result retrieval.Result) (string, error)
}

// WebSearcher runs a live web search and fetches result pages.
// *search.Client implements it.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Kit bundles the tool dependencies and registers the tools with Genkit.
type Kit struct {
	directory  namespace.Directory
	retriever  Retriever
	summarizer Summarizer
	web        WebSearcher      // nil disables webSearch
	metrics    *metrics.Metrics // nil disables tool call counters
	logger     *slog.Logger
}

// NewKit creates a Kit. The directory, retriever and summarizer are
// required; web may be nil when no search instance is configured, which
// drops the webSearch tool. m may be nil to skip tool call counters. A
// nil logger falls back to slog.Default.
func NewKit(directory namespace.Directory, retriever Retriever, summarizer Summarizer, web WebSearcher, m *metrics.Metrics, logger *slog.Logger) (*Kit, error) {
	if directory == nil {
		return nil, fmt.Errorf("tools: namespace directory is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("tools: retriever is required")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("tools: summarizer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Kit{
		directory:  directory,
		retriever:  retriever,
		summarizer: summarizer,
		web:        web,
		metrics:    m,
		logger:     logger,
	}, nil
}

// countCall increments the per-tool invocation counter.
func (k *Kit) countCall(tool string) {
	if k.metrics != nil {
		k.metrics.ToolCallsTotal.WithLabelValues(tool).Inc()
	}
}

// Register defines all tools on the Genkit instance and returns their
// refs for ai.WithTools.
func (k *Kit) Register(g *genkit.Genkit) []ai.ToolRef {
	refs := []ai.ToolRef{
		genkit.DefineTool(g, SearchDocumentsName,
			"Primary tool for retrieving information from the ingested company documents "+
				"(10-K filings, annual reports, risk factors). Use for in-depth analysis of a "+
				"company's past performance. Optionally narrow the search with company names.",
			k.SearchDocuments),
		genkit.DefineTool(g, CalculatorName,
			"Perform arithmetic: ratios, margins, percentage differences. "+
				"Input is a plain math expression like '200 / 5' or '(4500 - 3200) / 4500'.",
			k.Calculate),
	}

	if k.web != nil {
		refs = append(refs, genkit.DefineTool(g, WebSearchName,
			"Search the live web for current events, latest news or real-time market data. "+
				"Use when the user asks for 'latest' or 'today's' information.",
			k.WebSearch))
	}
	return refs
}

// HasWebSearch reports whether a web search backend is configured.
func (k *Kit) HasWebSearch() bool {
	return k.web != nil
}

// SearchDocumentsInput is the model-facing input for searchDocuments.
type SearchDocumentsInput struct {
	Query        string   `json:"query" jsonschema_description:"The specific question to ask the documents"`
	CompanyNames []string `json:"companyNames,omitempty" jsonschema_description:"Optional company names to narrow the search"`
}

// SearchDocuments resolves the target namespaces, retrieves and re-ranks
// chunks across them and returns a summarized, cited answer prefixed with
// routing info lines.
func (k *Kit) SearchDocuments(tctx *ai.ToolContext, input SearchDocumentsInput) (string, error) {
	ctx := tctx.Context
	k.countCall(SearchDocumentsName)
	k.logger.Info("searchDocuments called", "query", input.Query, "hints", len(input.CompanyNames))

	known, err := k.directory.Namespaces(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching namespaces: %v", err), nil
	}

	res, err := namespace.Resolve(input.Query, input.CompanyNames, known)
	if err != nil {
		return "Error: Could not retrieve any namespaces from the document store.", nil
	}

	if len(res.Matched) == 0 {
		msg := "Error: No valid company namespaces found for the query into internal documents."
		if len(res.Unmatched) > 0 {
			msg += fmt.Sprintf(" Invalid names: %s.", strings.Join(res.Unmatched, ", "))
		}
		msg += fmt.Sprintf("\nAvailable internal namespaces are: %s", strings.Join(known, ", "))
		return msg, nil
	}

	sections := []string{
		fmt.Sprintf("Info: Successfully matched query to internal namespaces: %s", strings.Join(res.Matched, ", ")),
	}
	if len(res.Unmatched) > 0 {
		sections = append(sections, fmt.Sprintf("Info: Skipped invalid names: %s", strings.Join(res.Unmatched, ", ")))
	}

	ranked, err := k.retriever.RetrieveAndRank(ctx, input.Query, res.Matched)
	switch {
	case err == nil:
		answer, sumErr := k.summarizer.Summarize(ctx, input.Query, ranked)
		if sumErr != nil {
			k.logger.Error("summarization failed", "error", sumErr)
			sections = append(sections, fmt.Sprintf("Error summarizing documents: %v", sumErr))
		} else {
			sections = append(sections, answer)
		}
	case errors.Is(err, retrieval.ErrNoCandidates):
		sections = append(sections, "No relevant documents found in the matched namespaces.")
	default:
		k.logger.Error("retrieval failed", "error", err)
		sections = append(sections, fmt.Sprintf("Error retrieving documents: %v", err))
	}

	return strings.Join(sections, "\n\n"), nil
}

// WebSearchInput is the model-facing input for webSearch.
type WebSearchInput struct {
	Query string `json:"query" jsonschema_description:"The web search query"`
}

// maxFetchedPageChars bounds readable page text in a tool result so one
// long article cannot crowd out the rest of the model context.
const maxFetchedPageChars = 4000

// WebSearch queries the search engine and formats the hits for the model.
// Hits without a snippet get their page fetched and reduced to readable
// text; a failed fetch degrades to a placeholder instead of failing the
// whole search.
func (k *Kit) WebSearch(tctx *ai.ToolContext, input WebSearchInput) (string, error) {
	ctx := tctx.Context
	k.countCall(WebSearchName)
	k.logger.Info("webSearch called", "query", input.Query)

	results, err := k.web.Search(ctx, input.Query)
	if err != nil {
		return fmt.Sprintf("Web Search Error: %v", err), nil
	}
	if len(results) == 0 {
		return "No relevant web results found.", nil
	}

	var b strings.Builder
	b.WriteString("Web Search Results:\n")
	for i, r := range results {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			content = k.fetchPage(ctx, r.URL)
		}
		fmt.Fprintf(&b, "Result %d (Source: %s):\n%s\n\n", i+1, r.URL, content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// fetchPage retrieves readable page text for a hit that came back without
// a snippet.
func (k *Kit) fetchPage(ctx context.Context, pageURL string) string {
	page, err := k.web.Fetch(ctx, pageURL)
	if err != nil {
		k.logger.Warn("page fetch failed", "url", pageURL, "error", err)
		return "(no content available)"
	}
	if len(page) > maxFetchedPageChars {
		page = page[:maxFetchedPageChars]
	}
	return page
}

// CalculateInput is the model-facing input for calculator.
type CalculateInput struct {
	Expression string `json:"expression" jsonschema_description:"A mathematical expression like '(4500 - 3200) / 4500'"`
}

// Calculate evaluates the expression and reports the result or a
// recoverable error message.
func (k *Kit) Calculate(tctx *ai.ToolContext, input CalculateInput) (string, error) {
	k.countCall(CalculatorName)
	v, err := Evaluate(input.Expression)
	if err != nil {
		return fmt.Sprintf("Calculation Error: %v. Please ensure the expression is valid math.", err), nil
	}
	return fmt.Sprintf("Calculation Result: %g", v), nil
}
