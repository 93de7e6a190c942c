// Package search queries a SearXNG instance and extracts readable page
// content.
//
// SearXNG is a self-hosted metasearch engine with a JSON API; the client
// rate-limits its own requests so an agent loop cannot hammer the
// instance. Fetched pages are reduced to readable text with the
// readability extractor before they reach the model.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"
)

// ErrSearchUnavailable indicates the SearXNG instance could not be
// queried.
var ErrSearchUnavailable = errors.New("search: engine unavailable")

// maxFetchBytes bounds how much of a page body is read.
const maxFetchBytes = 10 << 20

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

// Config configures the search client.
type Config struct {
	// BaseURL is the SearXNG instance, e.g. "http://searxng:8080".
	BaseURL string

	// MaxResults caps the returned hits. Zero means 5.
	MaxResults int

	// RateLimit is requests per second against the instance. Zero means 1.
	RateLimit float64

	// Timeout per HTTP request. Zero means 30s.
	Timeout time.Duration
}

// Client talks to SearXNG and fetches result pages.
type Client struct {
	baseURL    string
	maxResults int
	limiter    *rate.Limiter
	client     *http.Client
	logger     *slog.Logger
}

// New creates a search client. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type searxResponse struct {
	Results []Result `json:"results"`
}

// Search runs a query against SearXNG and returns up to MaxResults hits.
// The call blocks on the rate limiter first, so it respects ctx
// cancellation while waiting.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var parsed searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := parsed.Results
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	c.logger.Debug("web search", "query", query, "results", len(results))
	return results, nil
}

// Fetch retrieves one page and extracts its readable text. Markup,
// navigation and boilerplate are stripped; the returned string is plain
// text suitable for a model context.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limit: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid page URL %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxFetchBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting content from %s: %w", pageURL, err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
