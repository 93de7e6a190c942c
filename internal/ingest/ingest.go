// Package ingest walks a data directory of namespace folders, chunks each
// document and writes the chunks to the vector store.
//
// Layout: dataDir/{namespace}/{document}. The folder name becomes the
// namespace (lower-cased, whitespace to underscores). A registry of
// content hashes makes re-runs incremental: only new or changed files are
// chunked and embedded again, and unchanged files are counted as skipped.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/finsight0/finsight/internal/chunker"
	"github.com/finsight0/finsight/internal/store"
	"github.com/finsight0/finsight/internal/tokenizer"
)

// Upserter writes embedded chunks into a namespace. *store.Store
// implements it.
type Upserter interface {
	Upsert(ctx context.Context, namespace string, chunks []store.Chunk) error
}

// Result summarizes one ingestion run.
type Result struct {
	Namespaces int
	Ingested   int // files chunked and written
	Skipped    int // files unchanged since the last run
	Failed     int // files that errored (logged, run continues)
	Chunks     int
}

// Pipeline coordinates extraction, chunking and storage.
type Pipeline struct {
	upserter   Upserter
	codec      tokenizer.Codec
	cfg        chunker.Config
	extractors []Extractor
	logger     *slog.Logger
}

// New creates a Pipeline. Nil extractors fall back to DefaultExtractors,
// a zero chunking config to chunker.DefaultConfig, a nil logger to
// slog.Default.
func New(upserter Upserter, codec tokenizer.Codec, cfg chunker.Config, extractors []Extractor, logger *slog.Logger) *Pipeline {
	if extractors == nil {
		extractors = DefaultExtractors()
	}
	if cfg == (chunker.Config{}) {
		cfg = chunker.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{upserter: upserter, codec: codec, cfg: cfg, extractors: extractors, logger: logger}
}

// IngestDir ingests every namespace folder under dataDir. The registry
// lives at dataDir/ingestion_registry.json and is held locked for the
// duration of the run.
//
// A file that fails extraction or upsert is logged and counted in
// Result.Failed; the run continues with the remaining files. Registry
// entries are only recorded for files that were fully written, so a
// failed file is retried on the next run.
func (p *Pipeline) IngestDir(ctx context.Context, dataDir string) (Result, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return Result{}, fmt.Errorf("reading data directory: %w", err)
	}

	registry, err := OpenRegistry(filepath.Join(dataDir, "ingestion_registry.json"))
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = registry.Close() }()

	var result Result
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		namespace := chunker.Slugify(entry.Name())
		if namespace == "" {
			continue
		}
		result.Namespaces++

		if err := p.ingestNamespace(ctx, filepath.Join(dataDir, entry.Name()), namespace, registry, &result); err != nil {
			return result, err
		}
	}

	if err := registry.Save(); err != nil {
		return result, err
	}
	p.logger.Info("ingestion complete",
		"namespaces", result.Namespaces,
		"ingested", result.Ingested,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"chunks", result.Chunks)
	return result, nil
}

func (p *Pipeline) ingestNamespace(ctx context.Context, dir, namespace string, registry *Registry, result *Result) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading namespace folder %s: %w", dir, err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		extractor := p.extractorFor(file.Name())
		if extractor == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, file.Name())
		hash, err := FileHash(path)
		if err != nil {
			p.logger.Warn("hashing failed", "file", path, "error", err)
			result.Failed++
			continue
		}

		key := RegistryKey(namespace, file.Name())
		if registry.UpToDate(key, hash) {
			result.Skipped++
			continue
		}

		n, err := p.ingestFile(ctx, extractor, path, namespace)
		if err != nil {
			p.logger.Warn("ingestion failed", "file", path, "namespace", namespace, "error", err)
			result.Failed++
			continue
		}

		registry.Record(key, hash)
		result.Ingested++
		result.Chunks += n
		p.logger.Info("ingested file", "file", file.Name(), "namespace", namespace, "chunks", n)
	}
	return nil
}

// ingestFile extracts, chunks and upserts one file, returning the chunk
// count.
func (p *Pipeline) ingestFile(ctx context.Context, extractor Extractor, path, namespace string) (int, error) {
	pages, err := extractor.Extract(path)
	if err != nil {
		return 0, err
	}

	source := SourceName(filepath.Base(path))
	pieces, err := chunker.SplitPages(p.codec, source, pages, p.cfg)
	if err != nil {
		return 0, err
	}
	if len(pieces) == 0 {
		return 0, nil
	}

	chunks := make([]store.Chunk, len(pieces))
	for i, c := range pieces {
		chunks[i] = store.Chunk{
			ID:         c.ID(namespace),
			Text:       c.Text,
			Source:     c.Document,
			Page:       c.Page,
			Index:      c.Index,
			TokenCount: c.TokenCount,
		}
	}

	if err := p.upserter.Upsert(ctx, namespace, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (p *Pipeline) extractorFor(filename string) Extractor {
	for _, e := range p.extractors {
		if e.Supports(filename) {
			return e
		}
	}
	return nil
}
