package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/finsight0/finsight/internal/ingest"
	"github.com/finsight0/finsight/internal/metrics"
)

const maxIngestBodyBytes = 4 * 1024

// Catalog lists and deletes document namespaces. *store.Store implements it.
type Catalog interface {
	Namespaces(ctx context.Context) ([]string, error)
	DeleteNamespace(ctx context.Context, namespace string) (int64, error)
}

// Ingestor runs the document ingestion pipeline. *ingest.Pipeline
// implements it.
type Ingestor interface {
	IngestDir(ctx context.Context, dataDir string) (ingest.Result, error)
}

// documentsHandler holds dependencies for namespace and ingestion endpoints.
type documentsHandler struct {
	catalog  Catalog
	ingestor Ingestor
	dataDir  string
	metrics  *metrics.Metrics // nil disables ingest counters
	logger   *slog.Logger
}

// listNamespaces handles GET /api/v1/namespaces.
func (h *documentsHandler) listNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.catalog.Namespaces(r.Context())
	if err != nil {
		h.logger.Error("listing namespaces", "error", err)
		writeError(w, http.StatusInternalServerError, "namespaces_failed", "failed to list namespaces", h.logger)
		return
	}
	if namespaces == nil {
		namespaces = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"namespaces": namespaces}, h.logger)
}

// deleteNamespace handles DELETE /api/v1/namespaces/{name}.
func (h *documentsHandler) deleteNamespace(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing_namespace", "namespace name is required", h.logger)
		return
	}

	deleted, err := h.catalog.DeleteNamespace(r.Context(), name)
	if err != nil {
		h.logger.Error("deleting namespace", "error", err, "namespace", name)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete namespace", h.logger)
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "namespace_not_found", "no chunks found for namespace", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"namespace": name, "deletedChunks": deleted}, h.logger)
}

type ingestRequest struct {
	Dir string `json:"dir,omitempty"`
}

type ingestResponse struct {
	Namespaces []string `json:"namespaces"`
	Ingested   int      `json:"ingested"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Chunks     int      `json:"chunks"`
}

// runIngest handles POST /api/v1/ingest. The ingestion runs synchronously;
// callers are expected to tolerate long requests for large directories.
func (h *documentsHandler) runIngest(w http.ResponseWriter, r *http.Request) {
	if h.ingestor == nil {
		writeError(w, http.StatusNotImplemented, "ingest_disabled", "ingestion is not configured on this server", h.logger)
		return
	}

	var req ingestRequest
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &req, maxIngestBodyBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", h.logger)
			return
		}
	}

	dir := req.Dir
	if dir == "" {
		dir = h.dataDir
	}
	if dir == "" {
		writeError(w, http.StatusBadRequest, "missing_dir", "no ingest directory configured or provided", h.logger)
		return
	}

	result, err := h.ingestor.IngestDir(r.Context(), dir)
	if err != nil {
		h.logger.Error("ingestion failed", "error", err, "dir", dir)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "ingestion failed", h.logger)
		return
	}

	if h.metrics != nil {
		h.metrics.FilesIngestedTotal.WithLabelValues("ingested").Add(float64(result.Ingested))
		h.metrics.FilesIngestedTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
		h.metrics.FilesIngestedTotal.WithLabelValues("failed").Add(float64(result.Failed))
		h.metrics.ChunksIngestedTotal.Add(float64(result.Chunks))
	}

	namespaces := result.Namespaces
	if namespaces == nil {
		namespaces = []string{}
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Namespaces: namespaces,
		Ingested:   result.Ingested,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
		Chunks:     result.Chunks,
	}, h.logger)
}
