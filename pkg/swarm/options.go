package swarm

import (
	"go.uber.org/zap"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/summarizer"
)

// defaultImportance is the importance score of a fragment recorded without
// an explicit one.
const defaultImportance = 0.5

// RecordOption configures a single RecordAgentMemory call.
type RecordOption func(*recordOptions)

type recordOptions struct {
	importance float64
	metadata   map[string]interface{}
	embedding  []float64
	agentType  string
}

// WithImportance sets the fragment's importance score. Values outside
// [0.0, 1.0] cause the record call to degrade gracefully and return false.
func WithImportance(importance float64) RecordOption {
	return func(o *recordOptions) {
		o.importance = importance
	}
}

// WithMetadata attaches structured metadata to the fragment.
func WithMetadata(metadata map[string]interface{}) RecordOption {
	return func(o *recordOptions) {
		o.metadata = metadata
	}
}

// WithEmbedding attaches a precomputed embedding, skipping the provider call
// during consolidation. Used when replaying fragments from a snapshot.
func WithEmbedding(embedding []float64) RecordOption {
	return func(o *recordOptions) {
		o.embedding = embedding
	}
}

// WithAgentType overrides the agent type stamped on the fragment, for agents
// recording on behalf of an unregistered peer.
func WithAgentType(agentType string) RecordOption {
	return func(o *recordOptions) {
		o.agentType = agentType
	}
}

func applyRecordOptions(opts []RecordOption) *recordOptions {
	o := &recordOptions{importance: defaultImportance}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Coordinator or MemoryService at construction time.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	embed     embedder.Provider
	summarize summarizer.Summarizer
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEmbedder sets the embedding provider used for relevance ranking and
// near-duplicate detection. Without one, both fall back to keyword overlap.
func WithEmbedder(embed embedder.Provider) Option {
	return func(o *options) {
		o.embed = embed
	}
}

// WithSummarizer sets the summarization provider used when merging long
// near-duplicate fragments. Optional.
func WithSummarizer(summarize summarizer.Summarizer) Option {
	return func(o *options) {
		o.summarize = summarize
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
