package swarm

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/cache"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/summarizer"
)

// MemoryService is the explicitly constructed root of the memory engine.
//
// It owns one cached coordinator per workspace (created on demand), the
// shared cache manager, and the shared providers. There is no hidden global
// state: tests construct as many isolated services as they need.
//
// Example:
//
//	svc, _ := swarm.NewMemoryService(cfg,
//	    swarm.WithLogger(logger),
//	    swarm.WithEmbedder(provider),
//	)
//	defer svc.Close()
//
//	coord := svc.Coordinator("ws_acme")
//	coord.RecordAgentMemory("agent_ocr", "invoice layout B converts better")
type MemoryService struct {
	cfg       *Config
	logger    *zap.Logger
	embed     embedder.Provider
	summarize summarizer.Summarizer
	node      *snowflake.Node

	manager *Manager

	mu         sync.Mutex
	workspaces map[string]*CachedCoordinator
	closed     bool
}

// Manager is the cross-cache monitor re-exported from the cache package.
type Manager = cache.Manager

// NewMemoryService creates the service with the given configuration.
//
// A nil cfg gets all defaults. The service starts the cache manager's
// background sweep; call Close on shutdown.
func NewMemoryService(cfg *Config, opts ...Option) (*MemoryService, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	cfg = cfg.withDefaults()

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewMemoryService", err)
	}

	return &MemoryService{
		cfg:        cfg,
		logger:     o.logger,
		embed:      o.embed,
		summarize:  o.summarize,
		node:       node,
		manager:    cache.NewManager(cache.ManagerConfig{SweepInterval: cfg.SweepInterval}, o.logger),
		workspaces: make(map[string]*CachedCoordinator),
	}, nil
}

// Coordinator returns the cached coordinator of the given workspace,
// creating it (and registering its read cache with the manager) on first
// use. Returns nil after Close.
func (s *MemoryService) Coordinator(workspaceID string) *CachedCoordinator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("coordinator requested after service close",
			zap.String("workspace_id", workspaceID))
		return nil
	}

	if coord, ok := s.workspaces[workspaceID]; ok {
		return coord
	}

	inner := newCoordinator(workspaceID, s.cfg, s.logger, s.embed, s.summarize, s.node)
	readCache := cache.New(cache.Config{
		MaxEntries:     s.cfg.CacheMaxEntries,
		MaxMemoryBytes: s.cfg.CacheMaxMemoryBytes,
		Strategy:       s.cfg.CacheStrategy,
	})
	coord := NewCachedCoordinator(inner, readCache)

	s.manager.Register("swarm-read:"+workspaceID, readCache)
	s.workspaces[workspaceID] = coord
	return coord
}

// Workspaces returns the IDs of all workspaces with a live coordinator.
func (s *MemoryService) Workspaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.workspaces))
	for id := range s.workspaces {
		out = append(out, id)
	}
	return out
}

// CacheManager exposes the shared cache manager for reports and on-demand
// memory optimization.
func (s *MemoryService) CacheManager() *Manager {
	return s.manager
}

// Close shuts down every coordinator and the cache manager. The first
// coordinator close error is returned, but shutdown always proceeds through
// all of them.
func (s *MemoryService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	coords := make([]*CachedCoordinator, 0, len(s.workspaces))
	for _, coord := range s.workspaces {
		coords = append(coords, coord)
	}
	s.mu.Unlock()

	var firstErr error
	for _, coord := range coords {
		if err := coord.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.manager.Close()
	return firstErr
}
