package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finsight0/finsight/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxResults int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:    srv.URL,
		MaxResults: maxResults,
		RateLimit:  1000, // effectively unthrottled for tests
		Timeout:    time.Second,
	}, testutil.NopLogger())
	return c, srv
}

func TestClient_Search(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("format") != "json" {
			t.Error("missing format=json")
		}
		_ = json.NewEncoder(w).Encode(searxResponse{Results: []Result{
			{Title: "Acme 10-K", URL: "https://example.com/10k", Content: "annual report", Engine: "duckduckgo"},
			{Title: "Acme news", URL: "https://example.com/news", Content: "coverage", Engine: "bing"},
		}})
	}, 5)

	results, err := c.Search(context.Background(), "acme 10-K filing")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "acme 10-K filing" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(results) != 2 || results[0].Title != "Acme 10-K" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestClient_Search_CapsResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := searxResponse{}
		for range 10 {
			resp.Results = append(resp.Results, Result{Title: "x"})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, 3)

	results, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestClient_Search_ServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}, 5)

	_, err := c.Search(context.Background(), "q")
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("expected ErrSearchUnavailable, got %v", err)
	}
}

func TestClient_Search_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searxResponse{})
	}))
	defer srv.Close()

	// One request per 10 seconds: the second call must wait, and a
	// canceled context aborts the wait.
	c := New(Config{BaseURL: srv.URL, RateLimit: 0.1, Timeout: time.Second}, testutil.NopLogger())
	if _, err := c.Search(context.Background(), "first"); err != nil {
		t.Fatalf("first search failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "second")
	if err == nil {
		t.Error("expected rate-limited call to fail on context deadline")
	}
}

func TestClient_Fetch(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Report</title></head><body>
	<nav>home | about</nav>
	<article><h1>Annual results</h1>
	<p>Revenue grew twelve percent year over year, driven by cloud demand.
	Operating margin expanded by two hundred basis points despite headwinds.</p>
	<p>The board approved a new buyback program for the coming fiscal year,
	signalling confidence in continued free cash flow generation.</p></article>
	</body></html>`

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}, 5)

	text, err := c.Fetch(context.Background(), srv.URL+"/report")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.Contains(text, "Revenue grew twelve percent") {
		t.Errorf("extracted text missing article body: %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("extracted text still contains markup: %q", text)
	}
}

func TestClient_Fetch_InvalidURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 5)

	if _, err := c.Fetch(context.Background(), "ftp://example.com/x"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestClient_Fetch_ErrorStatus(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, 5)

	if _, err := c.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404 page")
	}
}
