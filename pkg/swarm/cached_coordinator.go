package swarm

import (
	"context"
	"fmt"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/cache"
)

// CachedCoordinator wraps a Coordinator with an AdaptiveCache for read-path
// acceleration of searches and agent contexts.
//
// The cache holds derived state only: every miss falls through to the
// coordinator, and any write (recording or consolidation) invalidates the
// workspace's cached read results so the cache never diverges from the
// canonical store.
type CachedCoordinator struct {
	*Coordinator

	readCache *cache.AdaptiveCache
}

// NewCachedCoordinator wraps coord with the given read cache. Committed
// consolidation passes, including background-triggered ones, invalidate the
// cache through a commit hook.
func NewCachedCoordinator(coord *Coordinator, readCache *cache.AdaptiveCache) *CachedCoordinator {
	coord.AddCommitHook(readCache.Clear)
	return &CachedCoordinator{
		Coordinator: coord,
		readCache:   readCache,
	}
}

// ReadCache returns the underlying cache, e.g. for manager registration.
func (c *CachedCoordinator) ReadCache() *cache.AdaptiveCache {
	return c.readCache
}

// SearchSwarmMemory memoizes Coordinator.SearchSwarmMemory.
func (c *CachedCoordinator) SearchSwarmMemory(ctx context.Context, query string, limit int) []*Fragment {
	key := fmt.Sprintf("search:%d:%s", limit, query)
	if cached, ok := c.readCache.Get(key); ok {
		return cloneFragments(cached.([]*Fragment))
	}

	results := c.Coordinator.SearchSwarmMemory(ctx, query, limit)
	c.readCache.Set(key, cloneFragments(results),
		cache.WithTTL(c.cfg.SearchCacheTTL),
		cache.WithSize(fragmentsSize(results)))
	return results
}

// GetAgentContext memoizes Coordinator.GetAgentContext.
func (c *CachedCoordinator) GetAgentContext(ctx context.Context, agentID, query string) *AgentContext {
	key := fmt.Sprintf("context:%s:%s", agentID, query)
	if cached, ok := c.readCache.Get(key); ok {
		agentCtx := cached.(*AgentContext)
		return &AgentContext{
			AgentID:             agentCtx.AgentID,
			AgentType:           agentCtx.AgentType,
			PersonalMemory:      cloneFragments(agentCtx.PersonalMemory),
			RelevantSwarmMemory: cloneFragments(agentCtx.RelevantSwarmMemory),
			CrossAgentInsights:  cloneFragments(agentCtx.CrossAgentInsights),
		}
	}

	agentCtx := c.Coordinator.GetAgentContext(ctx, agentID, query)
	size := fragmentsSize(agentCtx.PersonalMemory) +
		fragmentsSize(agentCtx.RelevantSwarmMemory) +
		fragmentsSize(agentCtx.CrossAgentInsights)
	// Cache a private copy so callers can mutate their result freely.
	c.readCache.Set(key, &AgentContext{
		AgentID:             agentCtx.AgentID,
		AgentType:           agentCtx.AgentType,
		PersonalMemory:      cloneFragments(agentCtx.PersonalMemory),
		RelevantSwarmMemory: cloneFragments(agentCtx.RelevantSwarmMemory),
		CrossAgentInsights:  cloneFragments(agentCtx.CrossAgentInsights),
	}, cache.WithTTL(c.cfg.SearchCacheTTL), cache.WithSize(size))
	return agentCtx
}

// RecordAgentMemory records through to the coordinator and invalidates the
// workspace's cached read results on success.
func (c *CachedCoordinator) RecordAgentMemory(agentID, content string, opts ...RecordOption) bool {
	ok := c.Coordinator.RecordAgentMemory(agentID, content, opts...)
	if ok {
		c.readCache.Clear()
	}
	return ok
}

func cloneFragments(in []*Fragment) []*Fragment {
	out := make([]*Fragment, len(in))
	for i, f := range in {
		out[i] = f.clone()
	}
	return out
}

// fragmentsSize approximates the memory footprint of a result list for cache
// accounting.
func fragmentsSize(in []*Fragment) int64 {
	var size int64
	for _, f := range in {
		size += int64(len(f.Content)) + int64(8*len(f.Embedding)) + 128
	}
	if size == 0 {
		size = 64
	}
	return size
}
