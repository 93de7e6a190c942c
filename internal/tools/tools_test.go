package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/retrieval"
	"github.com/finsight0/finsight/internal/search"
	"github.com/finsight0/finsight/internal/store"
	"github.com/finsight0/finsight/internal/testutil"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockDirectory struct {
	namespaces []string
	err        error
}

func (m *mockDirectory) Namespaces(ctx context.Context) ([]string, error) {
	return m.namespaces, m.err
}

type mockRetriever struct {
	result     retrieval.Result
	err        error
	namespaces []string
}

func (m *mockRetriever) RetrieveAndRank(ctx context.Context, query string, namespaces []string) (retrieval.Result, error) {
	m.namespaces = namespaces
	return m.result, m.err
}

type mockSummarizer struct {
	answer string
	err    error
}

func (m *mockSummarizer) Summarize(ctx context.Context, query string, result retrieval.Result) (string, error) {
	return m.answer, m.err
}

type mockWeb struct {
	results  []search.Result
	err      error
	page     string
	fetchErr error
	fetched  []string
}

func (m *mockWeb) Search(ctx context.Context, query string) ([]search.Result, error) {
	return m.results, m.err
}

func (m *mockWeb) Fetch(ctx context.Context, pageURL string) (string, error) {
	m.fetched = append(m.fetched, pageURL)
	return m.page, m.fetchErr
}

func newTestKit(t *testing.T, dir *mockDirectory, ret *mockRetriever, sum *mockSummarizer, web WebSearcher) *Kit {
	t.Helper()
	k, err := NewKit(dir, ret, sum, web, nil, testutil.NopLogger())
	if err != nil {
		t.Fatalf("NewKit failed: %v", err)
	}
	return k
}

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

// ============================================================================
// SearchDocuments
// ============================================================================

func TestKit_SearchDocuments_Explicit(t *testing.T) {
	dir := &mockDirectory{namespaces: []string{"amazon_namespace", "nvidia_namespace"}}
	ret := &mockRetriever{result: retrieval.Result{
		Chunks: []retrieval.Ranked{{Candidate: store.Candidate{Text: "rev"}}},
	}}
	sum := &mockSummarizer{answer: "Revenue grew.\n\n---\n## References\n- 10k.pdf (Page: 3)"}

	k := newTestKit(t, dir, ret, sum, nil)
	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{
		Query:        "What were the revenues?",
		CompanyNames: []string{"Amazon", "Tesla"},
	})
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}

	if !strings.Contains(out, "Info: Successfully matched query to internal namespaces: amazon_namespace") {
		t.Errorf("missing matched info line in %q", out)
	}
	if !strings.Contains(out, "Info: Skipped invalid names: Tesla") {
		t.Errorf("missing unmatched info line in %q", out)
	}
	if !strings.Contains(out, "Revenue grew.") || !strings.Contains(out, "## References") {
		t.Errorf("missing answer in %q", out)
	}
	if len(ret.namespaces) != 1 || ret.namespaces[0] != "amazon_namespace" {
		t.Errorf("retriever got namespaces %v", ret.namespaces)
	}
}

func TestKit_SearchDocuments_Implicit(t *testing.T) {
	dir := &mockDirectory{namespaces: []string{"amazon_namespace", "nvidia_namespace"}}
	ret := &mockRetriever{}
	sum := &mockSummarizer{answer: "answer"}

	k := newTestKit(t, dir, ret, sum, nil)
	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{Query: "Compare nvidia margins"})
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}

	if !strings.Contains(out, "nvidia_namespace") {
		t.Errorf("expected implicit match on nvidia_namespace, got %q", out)
	}
	if strings.Contains(out, "Skipped invalid names") {
		t.Errorf("implicit mode should not report unmatched names: %q", out)
	}
}

func TestKit_SearchDocuments_NoMatch(t *testing.T) {
	dir := &mockDirectory{namespaces: []string{"amazon_namespace"}}
	k := newTestKit(t, dir, &mockRetriever{}, &mockSummarizer{}, nil)

	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{
		Query:        "q",
		CompanyNames: []string{"Tesla"},
	})
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}

	if !strings.Contains(out, "Error: No valid company namespaces found") {
		t.Errorf("missing no-match error in %q", out)
	}
	if !strings.Contains(out, "Invalid names: Tesla") {
		t.Errorf("missing invalid names in %q", out)
	}
	if !strings.Contains(out, "Available internal namespaces are: amazon_namespace") {
		t.Errorf("missing available namespaces in %q", out)
	}
}

func TestKit_SearchDocuments_DirectoryError(t *testing.T) {
	dir := &mockDirectory{err: errors.New("connection refused")}
	k := newTestKit(t, dir, &mockRetriever{}, &mockSummarizer{}, nil)

	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{Query: "q"})
	if err != nil {
		t.Fatalf("tool errors must be returned as text: %v", err)
	}
	if !strings.Contains(out, "Error fetching namespaces") {
		t.Errorf("missing directory error in %q", out)
	}
}

func TestKit_SearchDocuments_NoCandidates(t *testing.T) {
	dir := &mockDirectory{namespaces: []string{"amazon_namespace"}}
	ret := &mockRetriever{err: retrieval.ErrNoCandidates}
	k := newTestKit(t, dir, ret, &mockSummarizer{}, nil)

	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{Query: "amazon revenue"})
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}
	if !strings.Contains(out, "No relevant documents found") {
		t.Errorf("missing empty-pool message in %q", out)
	}
}

func TestKit_SearchDocuments_SummarizerError(t *testing.T) {
	dir := &mockDirectory{namespaces: []string{"amazon_namespace"}}
	sum := &mockSummarizer{err: errors.New("model unavailable")}
	k := newTestKit(t, dir, &mockRetriever{}, sum, nil)

	out, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{Query: "amazon revenue"})
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}
	if !strings.Contains(out, "Error summarizing documents") {
		t.Errorf("missing summarizer error in %q", out)
	}
}

// ============================================================================
// WebSearch
// ============================================================================

func TestKit_WebSearch(t *testing.T) {
	web := &mockWeb{results: []search.Result{
		{URL: "https://example.com/a", Content: "snippet one"},
		{URL: "https://example.com/b", Content: "snippet two"},
	}}
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, web)

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "latest news"})
	if err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}

	if !strings.HasPrefix(out, "Web Search Results:") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "Result 1 (Source: https://example.com/a):\nsnippet one") {
		t.Errorf("missing first result in %q", out)
	}
	if !strings.Contains(out, "Result 2 (Source: https://example.com/b)") {
		t.Errorf("missing second result in %q", out)
	}
	if len(web.fetched) != 0 {
		t.Errorf("hits with snippets must not be fetched, got %v", web.fetched)
	}
}

func TestKit_WebSearch_FetchesEmptySnippet(t *testing.T) {
	web := &mockWeb{
		results: []search.Result{
			{URL: "https://example.com/a", Content: "snippet"},
			{URL: "https://example.com/b"},
		},
		page: "full readable article text",
	}
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, web)

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "latest"})
	if err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}

	if !strings.Contains(out, "Result 2 (Source: https://example.com/b):\nfull readable article text") {
		t.Errorf("missing fetched page text in %q", out)
	}
	if len(web.fetched) != 1 || web.fetched[0] != "https://example.com/b" {
		t.Errorf("fetched = %v, want only the snippetless hit", web.fetched)
	}
}

func TestKit_WebSearch_FetchFailureDegrades(t *testing.T) {
	web := &mockWeb{
		results:  []search.Result{{URL: "https://example.com/a"}},
		fetchErr: errors.New("status 403"),
	}
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, web)

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "latest"})
	if err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}
	if !strings.Contains(out, "(no content available)") {
		t.Errorf("failed fetch must degrade to a placeholder, got %q", out)
	}
}

func TestKit_WebSearch_FetchedPageTruncated(t *testing.T) {
	web := &mockWeb{
		results: []search.Result{{URL: "https://example.com/a"}},
		page:    strings.Repeat("x", maxFetchedPageChars+100),
	}
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, web)

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "latest"})
	if err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}
	if strings.Contains(out, strings.Repeat("x", maxFetchedPageChars+1)) {
		t.Error("fetched page text must be truncated")
	}
	if !strings.Contains(out, strings.Repeat("x", maxFetchedPageChars)) {
		t.Error("truncated page text missing from output")
	}
}

func TestKit_WebSearch_NoResults(t *testing.T) {
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, &mockWeb{})

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "q"})
	if err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}
	if out != "No relevant web results found." {
		t.Errorf("out = %q", out)
	}
}

func TestKit_WebSearch_Error(t *testing.T) {
	web := &mockWeb{err: errors.New("engine down")}
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, web)

	out, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "q"})
	if err != nil {
		t.Fatalf("tool errors must be returned as text: %v", err)
	}
	if !strings.Contains(out, "Web Search Error") {
		t.Errorf("missing error message in %q", out)
	}
}

// ============================================================================
// Calculate
// ============================================================================

func TestKit_Calculate(t *testing.T) {
	k := newTestKit(t, &mockDirectory{namespaces: []string{"x"}}, &mockRetriever{}, &mockSummarizer{}, nil)

	out, err := k.Calculate(toolCtx(), CalculateInput{Expression: "200 / 5"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if out != "Calculation Result: 40" {
		t.Errorf("out = %q", out)
	}

	out, err = k.Calculate(toolCtx(), CalculateInput{Expression: "1 / 0"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !strings.Contains(out, "Calculation Error") {
		t.Errorf("out = %q", out)
	}
}

// ============================================================================
// Instrumentation
// ============================================================================

func TestKit_ToolCallsCounted(t *testing.T) {
	m, _ := metrics.New()
	dir := &mockDirectory{namespaces: []string{"amazon_namespace"}}
	web := &mockWeb{results: []search.Result{{URL: "https://example.com", Content: "snippet"}}}
	k, err := NewKit(dir, &mockRetriever{}, &mockSummarizer{answer: "a"}, web, m, testutil.NopLogger())
	if err != nil {
		t.Fatalf("NewKit failed: %v", err)
	}

	if _, err := k.SearchDocuments(toolCtx(), SearchDocumentsInput{Query: "amazon revenue"}); err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}
	if _, err := k.WebSearch(toolCtx(), WebSearchInput{Query: "latest"}); err != nil {
		t.Fatalf("WebSearch failed: %v", err)
	}
	for range 2 {
		if _, err := k.Calculate(toolCtx(), CalculateInput{Expression: "1 + 1"}); err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}
	}

	counts := map[string]float64{
		SearchDocumentsName: 1,
		WebSearchName:       1,
		CalculatorName:      2,
	}
	for tool, want := range counts {
		if got := promtest.ToFloat64(m.ToolCallsTotal.WithLabelValues(tool)); got != want {
			t.Errorf("tool_calls_total{tool=%q} = %v, want %v", tool, got, want)
		}
	}
}

// ============================================================================
// Constructor
// ============================================================================

func TestNewKit_RequiredDeps(t *testing.T) {
	if _, err := NewKit(nil, &mockRetriever{}, &mockSummarizer{}, nil, nil, nil); err == nil {
		t.Error("expected error for nil directory")
	}
	if _, err := NewKit(&mockDirectory{}, nil, &mockSummarizer{}, nil, nil, nil); err == nil {
		t.Error("expected error for nil retriever")
	}
	if _, err := NewKit(&mockDirectory{}, &mockRetriever{}, nil, nil, nil, nil); err == nil {
		t.Error("expected error for nil summarizer")
	}
	if _, err := NewKit(&mockDirectory{}, &mockRetriever{}, &mockSummarizer{}, nil, nil, nil); err != nil {
		t.Errorf("web searcher and metrics should be optional: %v", err)
	}
}
