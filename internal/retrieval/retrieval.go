// Package retrieval fans a query out across namespaces, pools the vector
// search candidates and re-ranks them with a cross-encoder.
//
// Vector similarity orders the candidate pool cheaply; the cross-encoder
// then re-scores the pooled candidates against the query and only the top
// few survive. Namespaces are searched concurrently but the pool is merged
// in namespace order, so a given query against a given store state always
// produces the same ranking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/rerank"
	"github.com/finsight0/finsight/internal/store"
)

// ErrNoCandidates indicates vector search produced an empty pool across
// all searched namespaces. The answer path reports this to the user
// instead of summarizing nothing.
var ErrNoCandidates = errors.New("retrieval: no candidates found")

// ErrAllNamespacesFailed indicates every namespace search errored, so the
// empty pool reflects infrastructure failure rather than missing content.
// It wraps ErrNoCandidates: callers that only care about "nothing to
// summarize" match both with one errors.Is check, while logs keep the
// joined per-namespace detail.
var ErrAllNamespacesFailed = fmt.Errorf("retrieval: all namespace searches failed: %w", ErrNoCandidates)

// Searcher runs a vector search within one namespace. *store.Store
// implements it.
type Searcher interface {
	Search(ctx context.Context, namespace, query string, limit int) ([]store.Candidate, error)
}

// Config bounds the candidate pool and the final ranking.
type Config struct {
	// PoolSize is the per-namespace vector search limit.
	PoolSize int

	// TopK is the number of chunks that survive re-ranking.
	TopK int

	// Timeout bounds each namespace search. Zero means no per-namespace
	// deadline beyond the caller's context.
	Timeout time.Duration

	// Metrics, when set, records search latency per namespace, the pool
	// size entering the re-ranker and the re-ranking latency.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the retrieval bounds used in production: a pool of
// 20 candidates per namespace cut to the top 3 after re-ranking.
func DefaultConfig() Config {
	return Config{PoolSize: 20, TopK: 3}
}

// Ranked is a candidate with its cross-encoder score.
type Ranked struct {
	store.Candidate
	Score float64
}

// Citation identifies a source location referenced by the answer.
type Citation struct {
	Source string
	Page   int
}

// Result is the outcome of retrieve-and-rank: the surviving chunks, best
// first, and their deduplicated citations in rank order.
type Result struct {
	Chunks    []Ranked
	Citations []Citation
}

// Engine coordinates vector search and re-ranking.
type Engine struct {
	searcher Searcher
	scorer   rerank.Scorer
	cfg      Config
	logger   *slog.Logger
}

// New creates an Engine. Zero config fields fall back to defaults; a nil
// logger falls back to slog.Default.
func New(searcher Searcher, scorer rerank.Scorer, cfg Config, logger *slog.Logger) *Engine {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultConfig().PoolSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{searcher: searcher, scorer: scorer, cfg: cfg, logger: logger}
}

// RetrieveAndRank searches every namespace concurrently, pools the
// candidates and returns the TopK best according to the cross-encoder.
//
// A namespace whose search fails is logged and skipped as long as at least
// one namespace succeeds; if all fail the error is ErrAllNamespacesFailed.
// A successful search over an empty store yields ErrNoCandidates.
func (e *Engine) RetrieveAndRank(ctx context.Context, query string, namespaces []string) (Result, error) {
	if len(namespaces) == 0 {
		return Result{}, ErrNoCandidates
	}

	perNamespace := make([][]store.Candidate, len(namespaces))
	errs := make([]error, len(namespaces))

	g, gctx := errgroup.WithContext(ctx)
	for i, ns := range namespaces {
		g.Go(func() error {
			sctx := gctx
			if e.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(gctx, e.cfg.Timeout)
				defer cancel()
			}
			start := time.Now()
			candidates, err := e.searcher.Search(sctx, ns, query, e.cfg.PoolSize)
			if err != nil {
				// Recorded, not returned: one bad namespace must not
				// cancel the others.
				errs[i] = err
				e.logger.Warn("namespace search failed", "namespace", ns, "error", err)
				return nil
			}
			if e.cfg.Metrics != nil {
				e.cfg.Metrics.RetrievalLatency.WithLabelValues(ns).Observe(time.Since(start).Seconds())
			}
			perNamespace[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var pool []store.Candidate
	failed := 0
	for i := range namespaces {
		if errs[i] != nil {
			failed++
			continue
		}
		pool = append(pool, perNamespace[i]...)
	}
	if failed == len(namespaces) {
		return Result{}, fmt.Errorf("%w: %w", ErrAllNamespacesFailed, errors.Join(errs...))
	}
	if len(pool) == 0 {
		return Result{}, ErrNoCandidates
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.CandidatesPooled.Observe(float64(len(pool)))
	}

	ranked, err := e.rank(ctx, query, pool)
	if err != nil {
		return Result{}, err
	}

	return Result{Chunks: ranked, Citations: citations(ranked)}, nil
}

// rank scores the pool with the cross-encoder and keeps the TopK best.
// Ties keep pool order, which is namespace order then similarity order.
func (e *Engine) rank(ctx context.Context, query string, pool []store.Candidate) ([]Ranked, error) {
	texts := make([]string, len(pool))
	for i, c := range pool {
		texts[i] = c.Text
	}

	start := time.Now()
	scores, err := e.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("scoring %d candidates: %w", len(pool), err)
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.RerankLatency.Observe(time.Since(start).Seconds())
	}

	top := rerank.TopIndices(scores, e.cfg.TopK)
	ranked := make([]Ranked, len(top))
	for i, idx := range top {
		ranked[i] = Ranked{Candidate: pool[idx], Score: scores[idx]}
	}
	return ranked, nil
}

// citations collapses ranked chunks to unique (source, page) pairs in rank
// order, so the most relevant citation is listed first.
func citations(ranked []Ranked) []Citation {
	seen := make(map[Citation]bool, len(ranked))
	var out []Citation
	for _, r := range ranked {
		c := Citation{Source: r.Source, Page: r.Page}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
