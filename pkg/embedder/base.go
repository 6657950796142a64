// Package embedder defines the boundary to an external embedding provider.
//
// The swarm memory engine uses embeddings only for relevance ranking and
// near-duplicate detection; when no provider is configured (or a provider
// fails), callers degrade silently to keyword-overlap relevance. The engine
// never trains models or maintains ANN indexes.
package embedder

import "context"

// Provider converts text into vector embeddings.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed converts a single text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts into embeddings in one call.
	// The result order matches the input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of vectors produced by this provider.
	Dimensions() int

	// Close releases provider resources.
	Close() error
}
