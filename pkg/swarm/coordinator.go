package swarm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/summarizer"
)

// AgentContext is the assembled memory view handed to one agent.
//
// It is always well-formed: an unknown agent gets empty slices, never an
// error, because agent pipelines must not abort on memory-subsystem hiccups.
type AgentContext struct {
	// AgentID is the requesting agent.
	AgentID string `json:"agent_id"`

	// AgentType is the agent's registered type, empty if unregistered.
	AgentType string `json:"agent_type,omitempty"`

	// PersonalMemory holds the agent's own fragments, newest first.
	PersonalMemory []*Fragment `json:"personal_memory"`

	// RelevantSwarmMemory holds the top-ranked workspace fragments for the
	// context query.
	RelevantSwarmMemory []*Fragment `json:"relevant_swarm_memory"`

	// CrossAgentInsights holds fragments from other agents whose relevance
	// to the query clears the stricter cross-agent threshold.
	CrossAgentInsights []*Fragment `json:"cross_agent_insights"`
}

// ConsolidationResult is the payload of an asynchronous consolidation.
type ConsolidationResult struct {
	Report *ConsolidationReport
	Err    error
}

// Coordinator is the per-workspace facade agents talk to: registration,
// recording, searching, context assembly, and consolidation triggering.
//
// Agent-facing operations are infallible from the caller's perspective:
// invalid input degrades to a false return or an empty result with a logged
// warning. The coordinator is safe for concurrent use.
//
// Example:
//
//	coord, _ := swarm.NewCoordinator("ws_acme", cfg, swarm.WithLogger(logger))
//	defer coord.Close()
//
//	coord.InitializeAgentMemory("agent_copy", "copywriter")
//	coord.RecordAgentMemory("agent_copy", "CTR doubles with personalized subject lines")
//	results := coord.SearchSwarmMemory(ctx, "subject lines", 5)
type Coordinator struct {
	workspaceID string
	cfg         *Config
	logger      *zap.Logger
	embed       embedder.Provider
	node        *snowflake.Node

	consolidated *ConsolidatedMemory
	consolidator *Consolidator

	agentsMu sync.RWMutex
	agents   map[string]string // agent id -> agent type

	// buffersMu guards the pending buffers only; recording never waits on
	// the consolidation lock.
	buffersMu     sync.Mutex
	buffers       map[string][]*Fragment
	pendingCount  int
	oldestPending time.Time

	// hookMu guards onCommit; hooks run after every committed pass,
	// including background-triggered ones.
	hookMu   sync.Mutex
	onCommit []func()

	triggerCh chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewCoordinator creates a coordinator for one workspace and starts its
// background consolidation trigger. Call Close on shutdown.
func NewCoordinator(workspaceID string, cfg *Config, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewCoordinator", err)
	}

	return newCoordinator(workspaceID, cfg.withDefaults(), o.logger, o.embed, o.summarize, node), nil
}

// newCoordinator wires a coordinator from already-resolved dependencies.
// Used directly by MemoryService so all workspaces share one snowflake node.
func newCoordinator(workspaceID string, cfg *Config, logger *zap.Logger, embed embedder.Provider, summarize summarizer.Summarizer, node *snowflake.Node) *Coordinator {
	logger = logger.With(zap.String("workspace_id", workspaceID))

	c := &Coordinator{
		workspaceID:  workspaceID,
		cfg:          cfg,
		logger:       logger,
		embed:        embed,
		node:         node,
		consolidated: NewConsolidatedMemory(workspaceID, cfg),
		consolidator: NewConsolidator(cfg, embed, summarize, logger),
		agents:       make(map[string]string),
		buffers:      make(map[string][]*Fragment),
		triggerCh:    make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.triggerLoop()

	return c
}

// WorkspaceID returns the workspace this coordinator serves.
func (c *Coordinator) WorkspaceID() string {
	return c.workspaceID
}

// Consolidated exposes the canonical store, e.g. for snapshotting by an
// external scheduler.
func (c *Coordinator) Consolidated() *ConsolidatedMemory {
	return c.consolidated
}

// InitializeAgentMemory registers an agent in the workspace's active set.
//
// Re-registration simply updates the agent type. Empty IDs are accepted with
// a logged warning so agent startup paths stay infallible. Always returns
// true.
func (c *Coordinator) InitializeAgentMemory(agentID, agentType string) bool {
	if agentID == "" {
		c.logger.Warn("registering agent with empty id")
	}

	c.agentsMu.Lock()
	defer c.agentsMu.Unlock()
	c.agents[agentID] = agentType
	return true
}

// RecordAgentMemory appends a new fragment to the agent's pending buffer.
//
// Invalid input (empty content, importance outside [0, 1]) degrades
// gracefully: the call logs a warning and returns false, it never panics or
// raises. Recording does not block on the consolidation lock; it
// opportunistically schedules consolidation once the pending buffers exceed
// the configured size or age threshold.
func (c *Coordinator) RecordAgentMemory(agentID, content string, opts ...RecordOption) bool {
	if strings.TrimSpace(content) == "" {
		c.logger.Warn("dropping fragment with empty content",
			zap.String("agent_id", agentID))
		return false
	}

	o := applyRecordOptions(opts)
	if o.importance < 0 || o.importance > 1 {
		c.logger.Warn("dropping fragment with out-of-range importance",
			zap.String("agent_id", agentID),
			zap.Float64("importance", o.importance))
		return false
	}

	c.agentsMu.RLock()
	agentType := c.agents[agentID]
	c.agentsMu.RUnlock()
	if o.agentType != "" {
		agentType = o.agentType
	}

	now := time.Now()
	fragment := &Fragment{
		ID:              c.node.Generate().Int64(),
		WorkspaceID:     c.workspaceID,
		AgentID:         agentID,
		AgentType:       agentType,
		Content:         content,
		ImportanceScore: o.importance,
		Tier:            TierHot,
		CreatedAt:       now,
		LastAccessed:    now,
		Embedding:       o.embedding,
		Metadata:        o.metadata,
	}

	c.buffersMu.Lock()
	c.buffers[agentID] = append(c.buffers[agentID], fragment)
	c.pendingCount++
	if c.oldestPending.IsZero() {
		c.oldestPending = now
	}
	shouldTrigger := c.pendingCount >= c.cfg.PendingFlushSize ||
		now.Sub(c.oldestPending) >= c.cfg.PendingFlushAge
	c.buffersMu.Unlock()

	if shouldTrigger {
		select {
		case c.triggerCh <- struct{}{}:
		default:
			// A trigger is already queued.
		}
	}
	return true
}

// SearchSwarmMemory searches the consolidated store plus all not-yet-
// consolidated pending fragments of this workspace and returns the top limit
// matches by composite score.
//
// The read path tolerates data that has not been merged yet (eventual
// consistency with respect to in-flight consolidation), but never crosses
// workspace boundaries. Failures degrade to an empty result.
func (c *Coordinator) SearchSwarmMemory(ctx context.Context, query string, limit int) []*Fragment {
	queryEmbedding := c.embedQuery(ctx, query)

	results := c.consolidated.Query(query, limit, queryEmbedding)

	pending := c.pendingSnapshot("")
	if len(pending) > 0 {
		now := time.Now()
		for _, sf := range rankFragments(pending, query, queryEmbedding, now, c.cfg) {
			r := sf.fragment.clone()
			r.Score = sf.score
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GetAgentContext assembles the memory view for one agent: its own
// fragments, the top-ranked swarm results for the query, and cross-agent
// insights above the stricter relevance threshold.
//
// Unknown agents and empty queries return an empty but well-formed context.
func (c *Coordinator) GetAgentContext(ctx context.Context, agentID, query string) *AgentContext {
	c.agentsMu.RLock()
	agentType := c.agents[agentID]
	c.agentsMu.RUnlock()

	out := &AgentContext{
		AgentID:             agentID,
		AgentType:           agentType,
		PersonalMemory:      []*Fragment{},
		RelevantSwarmMemory: []*Fragment{},
		CrossAgentInsights:  []*Fragment{},
	}

	personal := c.consolidated.ByAgent(agentID, c.cfg.ContextPersonalLimit)
	for _, f := range c.pendingSnapshot(agentID) {
		personal = append(personal, f.clone())
	}
	sort.SliceStable(personal, func(i, j int) bool {
		return personal[i].CreatedAt.After(personal[j].CreatedAt)
	})
	if len(personal) > c.cfg.ContextPersonalLimit {
		personal = personal[:c.cfg.ContextPersonalLimit]
	}
	out.PersonalMemory = personal

	if query == "" {
		return out
	}

	out.RelevantSwarmMemory = c.SearchSwarmMemory(ctx, query, c.cfg.ContextSwarmLimit)

	queryEmbedding := c.embedQuery(ctx, query)
	queryTokens := tokenize(query)
	candidates := c.consolidated.stagedCopy()
	candidates = append(candidates, c.pendingSnapshot("")...)
	for _, f := range candidates {
		if f.AgentID == agentID {
			continue
		}
		rel := relevance(f, queryTokens, queryEmbedding)
		if rel >= c.cfg.CrossAgentThreshold {
			insight := f.clone()
			insight.Score = rel
			out.CrossAgentInsights = append(out.CrossAgentInsights, insight)
		}
	}
	sort.SliceStable(out.CrossAgentInsights, func(i, j int) bool {
		return out.CrossAgentInsights[i].Score > out.CrossAgentInsights[j].Score
	})
	if len(out.CrossAgentInsights) > c.cfg.ContextSwarmLimit {
		out.CrossAgentInsights = out.CrossAgentInsights[:c.cfg.ContextSwarmLimit]
	}

	return out
}

// ConsolidateSwarmMemories folds the pending buffers into the consolidated
// store.
//
// Without force, the pass is gated on the pending size/age thresholds and
// returns a skipped report when neither is met. force bypasses the gate and
// surfaces lock-timeout errors to the caller; the background trigger instead
// logs and defers.
func (c *Coordinator) ConsolidateSwarmMemories(ctx context.Context, force bool) (*ConsolidationReport, error) {
	if !force && !c.flushDue() {
		return &ConsolidationReport{WorkspaceID: c.workspaceID, Skipped: true}, nil
	}

	// Drain and clear happen inside the consolidation critical section:
	// two overlapping passes must never capture the same snapshot, or the
	// later clear would remove fragments recorded after the earlier one.
	if err := c.consolidator.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.consolidator.release()

	pending, drained := c.drainSnapshot(force)
	if pending == nil && !force {
		return &ConsolidationReport{WorkspaceID: c.workspaceID, Skipped: true}, nil
	}

	report, err := c.consolidator.consolidateLocked(ctx, c.consolidated, pending)
	if err != nil {
		// Buffers stay untouched; the next trigger retries the same
		// pending fragments.
		return nil, err
	}

	c.clearDrained(drained)
	c.runCommitHooks()
	return report, nil
}

// flushDue reports whether the pending buffers have reached the size or age
// flush threshold. A cheap pre-check so gated-off background ticks do not
// contend for the consolidation lock.
func (c *Coordinator) flushDue() bool {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()
	return c.pendingCount >= c.cfg.PendingFlushSize ||
		(!c.oldestPending.IsZero() && time.Since(c.oldestPending) >= c.cfg.PendingFlushAge)
}

// AddCommitHook registers fn to run after every committed consolidation
// pass. Used by CachedCoordinator to invalidate derived read results.
func (c *Coordinator) AddCommitHook(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onCommit = append(c.onCommit, fn)
}

func (c *Coordinator) runCommitHooks() {
	c.hookMu.Lock()
	hooks := append([]func(){}, c.onCommit...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// ConsolidateAsync runs ConsolidateSwarmMemories in a goroutine and delivers
// the result on the returned channel.
func (c *Coordinator) ConsolidateAsync(ctx context.Context, force bool) <-chan *ConsolidationResult {
	resultCh := make(chan *ConsolidationResult, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		report, err := c.ConsolidateSwarmMemories(ctx, force)
		resultCh <- &ConsolidationResult{Report: report, Err: err}
		close(resultCh)
	}()
	return resultCh
}

// PendingCount returns the number of fragments awaiting consolidation.
func (c *Coordinator) PendingCount() int {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()
	return c.pendingCount
}

// Close stops the background trigger task and waits for in-flight work to
// finish within a bounded grace period.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	grace := c.cfg.ConsolidationTimeout + c.cfg.LockTimeout
	select {
	case <-finished:
		return nil
	case <-time.After(grace):
		return NewMemoryError("Close", ErrConsolidation)
	}
}

// embedQuery embeds the query text, degrading silently to nil (keyword
// relevance) when no provider is configured or the provider fails.
func (c *Coordinator) embedQuery(ctx context.Context, query string) []float64 {
	if c.embed == nil || query == "" {
		return nil
	}
	vec, err := c.embed.Embed(ctx, query)
	if err != nil {
		c.logger.Debug("query embedding failed, using keyword relevance", zap.Error(err))
		return nil
	}
	return vec
}

// pendingSnapshot returns clones of pending fragments, either for one agent
// or (with an empty agentID) for the whole workspace.
func (c *Coordinator) pendingSnapshot(agentID string) []*Fragment {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()

	var out []*Fragment
	if agentID != "" {
		for _, f := range c.buffers[agentID] {
			out = append(out, f.clone())
		}
		return out
	}
	for _, buf := range c.buffers {
		for _, f := range buf {
			out = append(out, f.clone())
		}
	}
	return out
}

// drainSnapshot captures the current pending fragments for a consolidation
// pass without clearing them. Returns nil when the pass is gated off.
//
// The per-agent counts in the returned map let clearDrained remove exactly
// the consumed prefix afterwards, so fragments recorded during the pass are
// preserved.
func (c *Coordinator) drainSnapshot(force bool) ([]*Fragment, map[string]int) {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()

	if !force {
		sizeHit := c.pendingCount >= c.cfg.PendingFlushSize
		ageHit := !c.oldestPending.IsZero() && time.Since(c.oldestPending) >= c.cfg.PendingFlushAge
		if !sizeHit && !ageHit {
			return nil, nil
		}
	}

	drained := make(map[string]int, len(c.buffers))
	pending := make([]*Fragment, 0, c.pendingCount)
	for agentID, buf := range c.buffers {
		drained[agentID] = len(buf)
		pending = append(pending, buf...)
	}
	return pending, drained
}

// clearDrained removes the consumed prefix of each pending buffer after a
// successful pass. Fragments appended mid-pass survive.
func (c *Coordinator) clearDrained(drained map[string]int) {
	c.buffersMu.Lock()
	defer c.buffersMu.Unlock()

	for agentID, n := range drained {
		buf := c.buffers[agentID]
		if len(buf) <= n {
			delete(c.buffers, agentID)
		} else {
			c.buffers[agentID] = append([]*Fragment(nil), buf[n:]...)
		}
	}

	c.pendingCount = 0
	c.oldestPending = time.Time{}
	for _, buf := range c.buffers {
		c.pendingCount += len(buf)
		for _, f := range buf {
			if c.oldestPending.IsZero() || f.CreatedAt.Before(c.oldestPending) {
				c.oldestPending = f.CreatedAt
			}
		}
	}
}

// triggerLoop is the cooperative background task that runs opportunistic
// consolidation. It observes the shutdown signal and exits promptly.
func (c *Coordinator) triggerLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TriggerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.triggerCh:
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(),
			c.cfg.LockTimeout+c.cfg.ConsolidationTimeout)
		if _, err := c.ConsolidateSwarmMemories(ctx, false); err != nil {
			// Background triggers never fail the workspace; the next
			// tick retries from the same buffers.
			c.logger.Warn("background consolidation deferred", zap.Error(err))
		}
		cancel()
	}
}
