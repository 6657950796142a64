package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// memoryPressureRatio is the fill level above which OptimizeMemory starts
// force-evicting from a cache.
const memoryPressureRatio = 0.8

// defaultEvictFraction is the share of entries OptimizeMemory removes from a
// cache under memory pressure.
const defaultEvictFraction = 0.25

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// SweepInterval is how often the background task calls CleanupExpired
	// on every registered cache. Defaults to one minute.
	SweepInterval time.Duration

	// ReportSink, when set, receives the aggregate memory report produced
	// after each sweep. It is the boundary to an external telemetry
	// collaborator and must not block for long.
	ReportSink func(*Report)
}

// Report is an aggregate memory report across all registered caches.
type Report struct {
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time

	// TotalEntries is the number of live entries across all caches.
	TotalEntries int

	// TotalMemoryBytes is the accounted memory across all caches.
	TotalMemoryBytes int64

	// Caches holds per-cache detail keyed by registered name.
	Caches map[string]CacheReport
}

// CacheReport is the per-cache slice of a Report.
type CacheReport struct {
	Entries     int
	MemoryBytes int64
	Stats       Stats
	HitRate     float64
}

// Manager monitors a set of named caches.
//
// It runs a cooperative background task that periodically sweeps expired
// entries from every registered cache and pushes an aggregate memory report
// to the configured sink. OptimizeMemory is callable on demand under memory
// pressure.
//
// Example:
//
//	mgr := cache.NewManager(cache.ManagerConfig{SweepInterval: 30 * time.Second}, logger)
//	defer mgr.Close()
//	mgr.Register("swarm-search", searchCache)
type Manager struct {
	mu     sync.RWMutex
	caches map[string]*AdaptiveCache

	cfg    ManagerConfig
	logger *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a Manager and starts its background sweep task.
//
// A nil logger is replaced with a no-op logger. Call Close to stop the
// background task.
func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	m := &Manager{
		caches: make(map[string]*AdaptiveCache),
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sweepLoop()

	return m
}

// Register adds a cache under the given name, replacing any previous cache
// registered under the same name.
func (m *Manager) Register(name string, c *AdaptiveCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Unregister removes the cache registered under name, if any.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caches, name)
}

// Cache returns the cache registered under name.
func (m *Manager) Cache(name string) (*AdaptiveCache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

// Report produces an aggregate memory report across all registered caches.
func (m *Manager) Report() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := &Report{
		GeneratedAt: time.Now(),
		Caches:      make(map[string]CacheReport, len(m.caches)),
	}
	for name, c := range m.caches {
		stats := c.Stats()
		cr := CacheReport{
			Entries:     c.Len(),
			MemoryBytes: c.MemoryBytes(),
			Stats:       stats,
			HitRate:     stats.HitRate(),
		}
		report.Caches[name] = cr
		report.TotalEntries += cr.Entries
		report.TotalMemoryBytes += cr.MemoryBytes
	}
	return report
}

// CleanupExpired sweeps expired entries from every registered cache and
// returns the total number removed.
func (m *Manager) CleanupExpired() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	removed := 0
	for name, c := range m.caches {
		if n := c.CleanupExpired(); n > 0 {
			removed += n
			m.logger.Debug("swept expired cache entries",
				zap.String("cache", name),
				zap.Int("removed", n))
		}
	}
	return removed
}

// OptimizeMemory force-evicts a fraction of entries from any cache above the
// memory pressure threshold of its budget, and returns the total number of
// evicted entries.
func (m *Manager) OptimizeMemory() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evicted := 0
	for name, c := range m.caches {
		budget := c.MaxMemoryBytes()
		if budget <= 0 {
			continue
		}
		if float64(c.MemoryBytes()) < memoryPressureRatio*float64(budget) {
			continue
		}
		n := c.EvictFraction(defaultEvictFraction)
		evicted += n
		m.logger.Info("evicted cache entries under memory pressure",
			zap.String("cache", name),
			zap.Int("evicted", n),
			zap.Int64("memory_bytes", c.MemoryBytes()),
			zap.Int64("budget_bytes", budget))
	}
	return evicted
}

// Close stops the background sweep task and waits for it to exit.
func (m *Manager) Close() {
	select {
	case <-m.done:
		// Already closed.
	default:
		close(m.done)
	}
	m.wg.Wait()
}

// sweepLoop is the cooperative background task of the Manager. It observes
// the shutdown signal and exits promptly.
func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.CleanupExpired()
			if m.cfg.ReportSink != nil {
				m.cfg.ReportSink(m.Report())
			}
		}
	}
}
