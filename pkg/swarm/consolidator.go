package swarm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/summarizer"
)

// ConsolidationReport summarizes one consolidation pass.
type ConsolidationReport struct {
	// RunID uniquely identifies the pass in logs and telemetry.
	RunID string `json:"run_id"`

	// WorkspaceID is the workspace the pass ran for.
	WorkspaceID string `json:"workspace_id"`

	// FragmentsConsolidated is the number of pending fragments folded into
	// the canonical store (appended or merged).
	FragmentsConsolidated int `json:"fragments_consolidated"`

	// FragmentsMerged is how many of those were merged into an existing
	// near-duplicate rather than appended.
	FragmentsMerged int `json:"fragments_merged"`

	// AgentsInvolved is the number of distinct agents whose pending
	// fragments were processed.
	AgentsInvolved int `json:"agents_involved"`

	// Duration is the wall-clock time of the pass.
	Duration time.Duration `json:"duration_seconds"`

	// Skipped is true when the pass did not run (threshold gate or lock
	// contention on a background trigger).
	Skipped bool `json:"skipped,omitempty"`
}

// Consolidator merges pending fragments into a workspace's canonical
// ConsolidatedMemory: it deduplicates near-identical content, recomputes
// tiers, and advances the consolidation version.
//
// A single consolidator instance serializes all passes for its workspace
// through an exclusive lock. A pass stages its changes on a copy and commits
// atomically, so any mid-pass failure leaves the previous stable store
// intact; the caller retries from the same pending buffers on the next
// trigger.
type Consolidator struct {
	cfg       *Config
	embed     embedder.Provider
	summarize summarizer.Summarizer
	logger    *zap.Logger

	// lock is a capacity-1 semaphore: the per-workspace consolidation lock
	// with timeout-bounded acquisition.
	lock chan struct{}
}

// NewConsolidator creates a consolidator for one workspace. The embedder and
// summarizer are optional; a nil logger is replaced with a no-op logger.
func NewConsolidator(cfg *Config, embed embedder.Provider, summarize summarizer.Summarizer, logger *zap.Logger) *Consolidator {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		cfg:       cfg.withDefaults(),
		embed:     embed,
		summarize: summarize,
		logger:    logger,
		lock:      make(chan struct{}, 1),
	}
}

// Consolidate runs one pass, folding pending into mem.
//
// Returns ErrConcurrency (wrapped) when the workspace lock cannot be
// acquired within the configured timeout, and ErrConsolidation (wrapped)
// when the pass exceeds its wall-clock budget; in both cases mem is
// unchanged and the pending fragments remain the caller's to retry.
func (c *Consolidator) Consolidate(ctx context.Context, mem *ConsolidatedMemory, pending []*Fragment) (*ConsolidationReport, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()
	return c.consolidateLocked(ctx, mem, pending)
}

// acquire takes the workspace consolidation lock, bounded by LockTimeout.
// Callers that drain pending buffers must hold the lock across
// drain, consolidateLocked, and clear so overlapping passes can never
// clear each other's fragments.
func (c *Consolidator) acquire(ctx context.Context) error {
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-time.After(c.cfg.LockTimeout):
		return NewMemoryError("Consolidate", ErrConcurrency)
	case <-ctx.Done():
		return NewMemoryError("Consolidate", ctx.Err())
	}
}

func (c *Consolidator) release() {
	<-c.lock
}

// consolidateLocked runs the pass body. The caller holds the workspace lock.
func (c *Consolidator) consolidateLocked(ctx context.Context, mem *ConsolidatedMemory, pending []*Fragment) (*ConsolidationReport, error) {
	start := time.Now()
	report := &ConsolidationReport{
		RunID:       uuid.NewString(),
		WorkspaceID: mem.WorkspaceID(),
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConsolidationTimeout)
	defer cancel()

	c.embedPending(ctx, pending)

	// All changes are staged on a copy; mem stays untouched until commit.
	staged := mem.stagedCopy()

	agents := make(map[string]struct{})
	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			// Timeout mid-pass: discard staged changes, keep the
			// previous stable store.
			c.logger.Warn("consolidation pass aborted",
				zap.String("workspace_id", mem.WorkspaceID()),
				zap.String("run_id", report.RunID),
				zap.Error(err))
			return nil, NewMemoryError("Consolidate", ErrConsolidation)
		}

		if err := f.validate(mem.WorkspaceID()); err != nil {
			// Malformed fragments are rejected locally; the batch
			// continues.
			c.logger.Warn("rejected invalid fragment",
				zap.String("workspace_id", mem.WorkspaceID()),
				zap.Int64("fragment_id", f.ID),
				zap.Error(err))
			continue
		}

		agents[f.AgentID] = struct{}{}

		if dup := c.findDuplicate(staged, f); dup != nil {
			c.mergeInto(ctx, dup, f)
			report.FragmentsMerged++
		} else {
			staged = append(staged, f.clone())
		}
		report.FragmentsConsolidated++
	}

	// Retier every fragment, not just touched ones: tier depends on the
	// current clock, so untouched fragments cool down here too.
	now := time.Now()
	usage := make(map[string]int64, len(agents))
	for _, f := range staged {
		f.Tier = tierFor(f, now, c.cfg.HotWindow, c.cfg.WarmWindow)
		usage[f.AgentID]++
	}

	mem.commit(staged, usage, now)

	report.AgentsInvolved = len(agents)
	report.Duration = time.Since(start)

	c.logger.Debug("consolidation pass committed",
		zap.String("workspace_id", mem.WorkspaceID()),
		zap.String("run_id", report.RunID),
		zap.Int("consolidated", report.FragmentsConsolidated),
		zap.Int("merged", report.FragmentsMerged),
		zap.Int64("version", mem.Version()),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// embedPending fills missing embeddings on pending fragments in one batch
// call. Best-effort: on provider failure the pass continues with keyword
// similarity.
func (c *Consolidator) embedPending(ctx context.Context, pending []*Fragment) {
	if c.embed == nil {
		return
	}

	var missing []*Fragment
	var texts []string
	for _, f := range pending {
		if len(f.Embedding) == 0 && f.Content != "" {
			missing = append(missing, f)
			texts = append(texts, f.Content)
		}
	}
	if len(missing) == 0 {
		return
	}

	vectors, err := c.embed.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(missing) {
		c.logger.Warn("embedding batch failed, falling back to keyword similarity",
			zap.Int("fragments", len(missing)),
			zap.Error(err))
		return
	}
	for i, f := range missing {
		f.Embedding = vectors[i]
	}
}

// findDuplicate returns the staged fragment that f should merge into, or nil.
//
// A staged fragment is a near-duplicate when its content similarity reaches
// the configured threshold, or when the same agent re-recorded identical
// content.
func (c *Consolidator) findDuplicate(staged []*Fragment, f *Fragment) *Fragment {
	for _, existing := range staged {
		if existing.AgentID == f.AgentID && existing.Content == f.Content {
			return existing
		}
		if contentSimilarity(existing, f) >= c.cfg.DuplicateThreshold {
			return existing
		}
	}
	return nil
}

// mergeInto folds src into dst: the higher importance score wins (along with
// its content and embedding), access counts sum, metadata keys union with
// dst taking precedence, and the activity window widens to cover both.
func (c *Consolidator) mergeInto(ctx context.Context, dst, src *Fragment) {
	summarized := c.maybeSummarize(ctx, dst, src)

	if src.ImportanceScore > dst.ImportanceScore {
		dst.ImportanceScore = src.ImportanceScore
		if summarized == "" {
			dst.Content = src.Content
			if len(src.Embedding) > 0 {
				dst.Embedding = append([]float64(nil), src.Embedding...)
			}
		}
	}
	if summarized != "" {
		dst.Content = summarized
		// The summary no longer matches either original vector.
		dst.Embedding = nil
	}

	dst.AccessCount += src.AccessCount
	if src.CreatedAt.Before(dst.CreatedAt) {
		dst.CreatedAt = src.CreatedAt
	}
	if src.LastAccessed.After(dst.LastAccessed) {
		dst.LastAccessed = src.LastAccessed
	}

	if len(src.Metadata) > 0 {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]interface{}, len(src.Metadata))
		}
		for k, v := range src.Metadata {
			if _, ok := dst.Metadata[k]; !ok {
				dst.Metadata[k] = v
			}
		}
	}
}

// maybeSummarize condenses two distinct merged contents through the
// configured summarizer when their combined length warrants it. Best-effort:
// returns "" when summarization is unavailable, unnecessary, or fails.
func (c *Consolidator) maybeSummarize(ctx context.Context, dst, src *Fragment) string {
	if c.summarize == nil || dst.Content == src.Content {
		return ""
	}
	if len(dst.Content)+len(src.Content) <= c.cfg.SummarizeOverLength {
		return ""
	}

	out, err := c.summarize.Summarize(ctx, dst.Content, src.Content)
	if err != nil || out == "" {
		c.logger.Debug("merge summarization failed, keeping dominant content", zap.Error(err))
		return ""
	}
	return out
}
