// Package mock provides a deterministic embedder for tests and examples.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// defaultDimensions keeps mock vectors small enough to be cheap in tests
// while still exercising cosine-similarity code paths.
const defaultDimensions = 64

// Embedder generates deterministic embeddings from a hash of the input text.
//
// Identical texts always produce identical vectors, so similarity-dependent
// behavior (deduplication, ranking) is reproducible without a network call.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with the default dimensions.
func New() *Embedder {
	return &Embedder{dimensions: defaultDimensions}
}

// NewWithDimensions creates a mock embedder producing vectors of the given size.
func NewWithDimensions(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed returns a deterministic unit vector derived from the text hash.
func (m *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, m.dimensions)
	for i := range vec {
		// LCG seeded by the text hash keeps output stable across runs.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(int64(seed)) / float64(math.MaxInt64)
	}
	return normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vector size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

// Close is a no-op.
func (m *Embedder) Close() error {
	return nil
}

func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
