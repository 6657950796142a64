package swarm

import (
	"sort"
	"sync"
	"time"
)

// Tier is the recency/activity classification of a fragment.
//
// Tiers are recomputed only by the consolidation pass, never by the cache
// layer. The set of tiers is closed; switches over Tier must be exhaustive.
type Tier int

const (
	// TierHot marks a fragment accessed or created within the hot window.
	TierHot Tier = iota

	// TierWarm marks a fragment accessed within the warm window.
	TierWarm

	// TierCold marks everything older.
	TierCold
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

// ParseTier converts a tier name into a Tier. Unknown names map to TierCold.
func ParseTier(name string) Tier {
	switch name {
	case "hot":
		return TierHot
	case "warm":
		return TierWarm
	default:
		return TierCold
	}
}

// Fragment is one atomic piece of agent-contributed knowledge.
//
// Before consolidation a fragment lives in its agent's pending buffer owned
// by the Coordinator; once consolidated it is owned exclusively by the
// ConsolidatedMemory of its workspace.
type Fragment struct {
	// ID is the unique identifier of the fragment.
	ID int64 `json:"id"`

	// WorkspaceID scopes the fragment to its workspace. Never crosses
	// workspace boundaries in reads or writes.
	WorkspaceID string `json:"workspace_id"`

	// AgentID identifies the contributing agent.
	AgentID string `json:"agent_id"`

	// AgentType is the contributing agent's declared type.
	AgentType string `json:"agent_type,omitempty"`

	// Content is the knowledge text.
	Content string `json:"content"`

	// ImportanceScore weights the fragment in search ranking. Range [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// Tier is the recency classification, recomputed at consolidation time.
	Tier Tier `json:"memory_tier"`

	// AccessCount is the number of times the fragment was returned by a
	// search or context read. Monotonically non-decreasing.
	AccessCount int64 `json:"access_count"`

	// CreatedAt is when the fragment was recorded.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessed is when the fragment was last returned by a read.
	LastAccessed time.Time `json:"last_accessed"`

	// Embedding is the optional vector representation of Content.
	// Omitted from JSON to keep payloads small.
	Embedding []float64 `json:"-"`

	// Metadata carries additional structured information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Score is the composite relevance score set on search results.
	Score float64 `json:"score,omitempty"`
}

// clone returns a deep-enough copy: metadata map and embedding slice are
// copied, content strings are shared.
func (f *Fragment) clone() *Fragment {
	out := *f
	if f.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = v
		}
	}
	if f.Embedding != nil {
		out.Embedding = append([]float64(nil), f.Embedding...)
	}
	return &out
}

// validate checks the fragment against its destination workspace.
func (f *Fragment) validate(workspaceID string) error {
	if f.WorkspaceID != workspaceID {
		return ErrWorkspaceMismatch
	}
	if f.ImportanceScore < 0 || f.ImportanceScore > 1 {
		return ErrImportanceRange
	}
	return nil
}

// tierFor classifies a fragment by its most recent activity.
func tierFor(f *Fragment, now time.Time, hotWindow, warmWindow time.Duration) Tier {
	last := f.LastAccessed
	if f.CreatedAt.After(last) {
		last = f.CreatedAt
	}
	age := now.Sub(last)
	switch {
	case age <= hotWindow:
		return TierHot
	case age <= warmWindow:
		return TierWarm
	default:
		return TierCold
	}
}

// ConsolidatedMemory is the canonical, deduplicated, tiered store of one
// workspace's fragments.
//
// Reads take the store's own lock, not the consolidation lock, so they may
// observe a view that is momentarily stale relative to an in-flight
// consolidation pass. Workspace isolation is never relaxed.
type ConsolidatedMemory struct {
	mu sync.RWMutex

	workspaceID string
	fragments   []*Fragment

	lastConsolidation    time.Time
	consolidationVersion int64

	// agentUsage counts consolidated fragments per contributing agent.
	agentUsage map[string]int64

	cfg *Config
}

// NewConsolidatedMemory creates an empty store for the given workspace.
func NewConsolidatedMemory(workspaceID string, cfg *Config) *ConsolidatedMemory {
	if cfg == nil {
		cfg = &Config{}
	}
	return &ConsolidatedMemory{
		workspaceID: workspaceID,
		agentUsage:  make(map[string]int64),
		cfg:         cfg.withDefaults(),
	}
}

// WorkspaceID returns the owning workspace.
func (m *ConsolidatedMemory) WorkspaceID() string {
	return m.workspaceID
}

// Len returns the number of consolidated fragments.
func (m *ConsolidatedMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments)
}

// Version returns the monotonic consolidation counter.
func (m *ConsolidatedMemory) Version() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consolidationVersion
}

// LastConsolidation returns when the last successful pass committed.
func (m *ConsolidatedMemory) LastConsolidation() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastConsolidation
}

// AgentUsage returns a copy of the per-agent consolidated fragment counts.
func (m *ConsolidatedMemory) AgentUsage() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.agentUsage))
	for k, v := range m.agentUsage {
		out[k] = v
	}
	return out
}

// Add validates and appends a single fragment outside a consolidation pass.
//
// A validation failure rejects only this fragment; it never aborts the batch
// the fragment was part of.
func (m *ConsolidatedMemory) Add(f *Fragment) error {
	if err := f.validate(m.workspaceID); err != nil {
		return NewMemoryError("Add", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, f.clone())
	m.agentUsage[f.AgentID]++
	return nil
}

// Query ranks consolidated fragments against the query text and returns the
// top limit matches as copies with Score populated.
//
// The composite score is relevance*0.5 + importance*0.3 + recency*0.2, where
// relevance uses embedding cosine similarity when queryEmbedding and the
// fragment embedding are both present and keyword overlap otherwise.
//
// Access bookkeeping (access count, last-accessed) is bumped on the stored
// fragments that are returned.
func (m *ConsolidatedMemory) Query(query string, limit int, queryEmbedding []float64) []*Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	scored := rankFragments(m.fragments, query, queryEmbedding, now, m.cfg)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]*Fragment, 0, len(scored))
	for _, sf := range scored {
		sf.fragment.AccessCount++
		sf.fragment.LastAccessed = now
		result := sf.fragment.clone()
		result.Score = sf.score
		out = append(out, result)
	}
	return out
}

// ByAgent returns up to limit of the agent's consolidated fragments as
// copies, most recently created first.
func (m *ConsolidatedMemory) ByAgent(agentID string, limit int) []*Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Fragment, 0, limit)
	for _, f := range m.fragments {
		if f.AgentID == agentID {
			out = append(out, f.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// commit atomically replaces the store's contents with the staged result of
// a successful consolidation pass.
//
// Reads during the pass bumped the live fragments, not the staged clones, so
// the larger access bookkeeping carries forward: AccessCount stays
// monotonically non-decreasing across a commit.
func (m *ConsolidatedMemory) commit(staged []*Fragment, usage map[string]int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[int64]*Fragment, len(m.fragments))
	for _, f := range m.fragments {
		live[f.ID] = f
	}
	for _, f := range staged {
		prev, ok := live[f.ID]
		if !ok {
			continue
		}
		if prev.AccessCount > f.AccessCount {
			f.AccessCount = prev.AccessCount
		}
		if prev.LastAccessed.After(f.LastAccessed) {
			f.LastAccessed = prev.LastAccessed
		}
	}

	m.fragments = staged
	m.agentUsage = usage
	m.lastConsolidation = at
	m.consolidationVersion++
}

// stagedCopy returns a deep copy of the current fragments for a consolidation
// pass to mutate without affecting readers.
func (m *ConsolidatedMemory) stagedCopy() []*Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Fragment, len(m.fragments))
	for i, f := range m.fragments {
		out[i] = f.clone()
	}
	return out
}
