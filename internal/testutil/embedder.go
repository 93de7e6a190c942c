package testutil

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// StubEmbedder is a deterministic ai.Embedder for tests that need real,
// distinguishable vectors without a model call. The vector for a text is a
// normalized hash projection, so identical texts always embed identically
// and different texts almost never collide.
type StubEmbedder struct {
	// Dimension of the produced vectors. Zero means 768.
	Dimension int
}

func (s *StubEmbedder) Name() string { return "stub-embedder" }

func (s *StubEmbedder) Register(r api.Registry) {}

func (s *StubEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	dim := s.Dimension
	if dim == 0 {
		dim = 768
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: hashVector(text, dim),
		})
	}
	return resp, nil
}

func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		v := float32(h.Sum32()%2000)/1000 - 1 // [-1, 1)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
