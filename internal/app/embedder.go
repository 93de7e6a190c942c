package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"
)

// dimensionedEmbedder forces a fixed output dimensionality on embed
// requests that carry no explicit options. Gemini embedding models output
// larger vectors by default than the pgvector schema stores.
type dimensionedEmbedder struct {
	inner ai.Embedder
	dim   int32
}

func withOutputDimension(inner ai.Embedder, dim int32) ai.Embedder {
	if dim <= 0 {
		return inner
	}
	return &dimensionedEmbedder{inner: inner, dim: dim}
}

func (e *dimensionedEmbedder) Name() string { return e.inner.Name() }

func (e *dimensionedEmbedder) Register(r api.Registry) { e.inner.Register(r) }

func (e *dimensionedEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if req.Options == nil {
		req.Options = &genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(e.dim),
		}
	}
	return e.inner.Embed(ctx, req)
}
