package summarize

import (
	"strings"
	"testing"

	"github.com/finsight0/finsight/internal/retrieval"
	"github.com/finsight0/finsight/internal/store"
)

func TestContextBlock(t *testing.T) {
	chunks := []retrieval.Ranked{
		{Candidate: store.Candidate{Source: "10k.pdf", Page: 3, Text: "Revenue grew 12%."}, Score: 0.9},
		{Candidate: store.Candidate{Source: "10q.pdf", Page: 1, Text: "Margins declined."}, Score: 0.7},
	}

	got := ContextBlock(chunks)
	want := "Source: 10k.pdf\nPage: 3\nText:\nRevenue grew 12%.\n\nSource: 10q.pdf\nPage: 1\nText:\nMargins declined."
	if got != want {
		t.Errorf("ContextBlock =\n%q\nwant\n%q", got, want)
	}
}

func TestContextBlock_Empty(t *testing.T) {
	if got := ContextBlock(nil); got != "" {
		t.Errorf("ContextBlock(nil) = %q, want empty", got)
	}
}

func TestReferences(t *testing.T) {
	citations := []retrieval.Citation{
		{Source: "data/acme/10k.pdf", Page: 3},
		{Source: "10q.pdf", Page: 1},
	}

	got := References(citations)
	want := "## References\n- 10k.pdf (Page: 3)\n- 10q.pdf (Page: 1)"
	if got != want {
		t.Errorf("References = %q, want %q", got, want)
	}
}

func TestReferences_PathReducedToBase(t *testing.T) {
	got := References([]retrieval.Citation{{Source: "/var/data/reports/annual_2023.pdf", Page: 12}})
	if strings.Contains(got, "/var/data") {
		t.Errorf("reference should use the base file name only, got %q", got)
	}
	if !strings.Contains(got, "annual_2023.pdf (Page: 12)") {
		t.Errorf("missing citation line in %q", got)
	}
}
