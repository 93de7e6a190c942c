// Package query is the entry point for answering user questions: it
// validates the question, hands it to the agent brain and maps failures
// to messages a caller can show verbatim.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MaxQueryLength bounds accepted questions, in bytes.
const MaxQueryLength = 1000

var (
	// ErrEmptyQuery indicates a blank question.
	ErrEmptyQuery = errors.New("query: question is empty")

	// ErrQueryTooLong indicates the question exceeds MaxQueryLength.
	ErrQueryTooLong = errors.New("query: question too long")
)

// Brain produces an answer for a question. *agent.Agent implements it.
type Brain interface {
	Ask(ctx context.Context, query string, hints []string) (string, error)
}

// Response is one answered question.
type Response struct {
	Answer  string
	Elapsed time.Duration
}

// Service validates and answers questions.
type Service struct {
	brain   Brain
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Service. A zero timeout means no per-question deadline;
// a nil logger falls back to slog.Default.
func New(brain Brain, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{brain: brain, timeout: timeout, logger: logger}
}

// Answer validates the question and runs it through the brain. Hints name
// document collections the answer must come from; an empty hints slice
// lets the agent route freely.
func (s *Service) Answer(ctx context.Context, question string, hints []string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, ErrEmptyQuery
	}
	if len(question) > MaxQueryLength {
		return Response{}, fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(question), MaxQueryLength)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.brain.Ask(ctx, question, hints)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("answering failed", "error", err, "elapsed", elapsed)
		return Response{}, fmt.Errorf("answering question: %w", err)
	}

	s.logger.Info("answered question",
		"queryLength", len(question),
		"hints", len(hints),
		"elapsed", elapsed)
	return Response{Answer: answer, Elapsed: elapsed}, nil
}
