// Package summarizer defines the boundary to an external text summarization
// provider, used by the consolidator when merging near-duplicate fragments
// whose combined content grows too long.
//
// Summarization is best-effort: the consolidator degrades silently to the
// higher-importance fragment's content when no provider is configured or the
// provider fails.
package summarizer

import "context"

// Summarizer condenses two overlapping pieces of content into one.
type Summarizer interface {
	// Summarize returns a single text covering both inputs.
	Summarize(ctx context.Context, a, b string) (string, error)

	// Close releases provider resources.
	Close() error
}

// Static is a Summarizer returning fixed output, for tests and examples.
type Static struct {
	// Output is returned by every Summarize call.
	Output string
}

// Summarize returns the configured fixed output.
func (s *Static) Summarize(context.Context, string, string) (string, error) {
	return s.Output, nil
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}
