package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/finsight0/finsight/internal/metrics"
	"github.com/finsight0/finsight/internal/query"
)

const maxQueryBodyBytes = 64 * 1024

// Answerer answers validated questions. *query.Service implements it.
type Answerer interface {
	Answer(ctx context.Context, question string, hints []string) (query.Response, error)
}

// queryHandler holds dependencies for the question answering endpoint.
type queryHandler struct {
	answerer Answerer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type queryRequest struct {
	Question    string   `json:"question"`
	Collections []string `json:"collections,omitempty"`
}

type queryResponse struct {
	Answer    string `json:"answer"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// answer handles POST /api/v1/query.
func (h *queryHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := readJSON(w, r, &req, maxQueryBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", h.logger)
		return
	}

	resp, err := h.answerer.Answer(r.Context(), req.Question, req.Collections)
	if err != nil {
		h.writeAnswerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues("ok").Inc()
		h.metrics.QueryLatency.Observe(resp.Elapsed.Seconds())
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    resp.Answer,
		ElapsedMs: resp.Elapsed.Milliseconds(),
	}, h.logger)
}

func (h *queryHandler) writeAnswerError(w http.ResponseWriter, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		outcome = "invalid"
		writeError(w, http.StatusBadRequest, "empty_question", "question must not be empty", h.logger)
	case errors.Is(err, query.ErrQueryTooLong):
		outcome = "invalid"
		writeError(w, http.StatusBadRequest, "question_too_long", "question exceeds the maximum length", h.logger)
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
		writeError(w, http.StatusGatewayTimeout, "query_timeout", "answering the question took too long", h.logger)
	default:
		h.logger.Error("answering question", "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "failed to answer the question", h.logger)
	}
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}
