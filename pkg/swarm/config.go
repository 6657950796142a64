package swarm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/cache"
)

// Default tuning values applied by Config.withDefaults.
const (
	defaultDuplicateThreshold  = 0.85
	defaultCrossAgentThreshold = 0.6
	defaultRecencyDecayRate    = 0.1
	defaultHotWindow           = time.Hour
	defaultWarmWindow          = 24 * time.Hour
	defaultPendingFlushSize    = 32
	defaultPendingFlushAge     = 30 * time.Second
	defaultConsolidateTimeout  = 10 * time.Second
	defaultLockTimeout         = 5 * time.Second
	defaultTriggerInterval     = 10 * time.Second
	defaultPersonalLimit       = 10
	defaultSwarmLimit          = 5
	defaultSummarizeOverLength = 512
	defaultSearchCacheTTL      = 30 * time.Second
	defaultCacheMaxEntries     = 1024
	defaultCacheMaxMemory      = 16 << 20 // 16 MiB
	defaultSweepInterval       = time.Minute
)

// Config contains the tuning knobs of the swarm memory engine.
//
// The zero value is usable: withDefaults fills every unset field, and
// Validate rejects out-of-range values.
//
// Example:
//
//	cfg := &swarm.Config{DuplicateThreshold: 0.9}
//	svc, _ := swarm.NewMemoryService(cfg, swarm.WithLogger(logger))
type Config struct {
	// DuplicateThreshold is the content similarity above which two
	// fragments merge during consolidation. Range (0, 1]. Default 0.85.
	DuplicateThreshold float64 `json:"duplicate_threshold"`

	// CrossAgentThreshold is the stricter relevance bar a fragment from
	// another agent must clear to appear in cross-agent insights.
	// Default 0.6.
	CrossAgentThreshold float64 `json:"cross_agent_threshold"`

	// RecencyDecayRate controls how fast the recency component of the
	// composite search score decays. Default 0.1.
	RecencyDecayRate float64 `json:"recency_decay_rate"`

	// HotWindow is the recent-access window that keeps a fragment Hot.
	// Default 1h.
	HotWindow time.Duration `json:"hot_window"`

	// WarmWindow is the access window that keeps a fragment Warm.
	// Default 24h.
	WarmWindow time.Duration `json:"warm_window"`

	// PendingFlushSize is the pending fragment count that opportunistically
	// triggers consolidation. Default 32.
	PendingFlushSize int `json:"pending_flush_size"`

	// PendingFlushAge is the pending buffer age that opportunistically
	// triggers consolidation. Default 30s.
	PendingFlushAge time.Duration `json:"pending_flush_age"`

	// ConsolidationTimeout bounds a consolidation pass by wall clock.
	// Exceeding it aborts the pass with a rollback. Default 10s.
	ConsolidationTimeout time.Duration `json:"consolidation_timeout"`

	// LockTimeout bounds waiting for the per-workspace consolidation lock.
	// Default 5s.
	LockTimeout time.Duration `json:"lock_timeout"`

	// TriggerInterval is how often the background trigger re-checks the
	// flush thresholds. Default 10s.
	TriggerInterval time.Duration `json:"trigger_interval"`

	// ContextPersonalLimit caps the personal memory slice of an agent
	// context. Default 10.
	ContextPersonalLimit int `json:"context_personal_limit"`

	// ContextSwarmLimit caps the relevant swarm memory slice of an agent
	// context. Default 5.
	ContextSwarmLimit int `json:"context_swarm_limit"`

	// SummarizeOverLength is the merged content length beyond which the
	// consolidator asks the configured summarizer to condense it.
	// Default 512.
	SummarizeOverLength int `json:"summarize_over_length"`

	// SearchCacheTTL is the lifetime of memoized search results in the
	// read-path cache. Default 30s.
	SearchCacheTTL time.Duration `json:"search_cache_ttl"`

	// CacheMaxEntries bounds each workspace read cache. Default 1024.
	CacheMaxEntries int `json:"cache_max_entries"`

	// CacheMaxMemoryBytes is the memory budget of each workspace read
	// cache. Default 16 MiB.
	CacheMaxMemoryBytes int64 `json:"cache_max_memory_bytes"`

	// CacheStrategy is the eviction policy of the read caches.
	// Default adaptive.
	CacheStrategy cache.Strategy `json:"cache_strategy"`

	// SweepInterval is how often the memory manager sweeps expired cache
	// entries. Default 1m.
	SweepInterval time.Duration `json:"sweep_interval"`
}

// withDefaults returns a copy of the config with unset fields filled in.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.DuplicateThreshold == 0 {
		out.DuplicateThreshold = defaultDuplicateThreshold
	}
	if out.CrossAgentThreshold == 0 {
		out.CrossAgentThreshold = defaultCrossAgentThreshold
	}
	if out.RecencyDecayRate == 0 {
		out.RecencyDecayRate = defaultRecencyDecayRate
	}
	if out.HotWindow == 0 {
		out.HotWindow = defaultHotWindow
	}
	if out.WarmWindow == 0 {
		out.WarmWindow = defaultWarmWindow
	}
	if out.PendingFlushSize == 0 {
		out.PendingFlushSize = defaultPendingFlushSize
	}
	if out.PendingFlushAge == 0 {
		out.PendingFlushAge = defaultPendingFlushAge
	}
	if out.ConsolidationTimeout == 0 {
		out.ConsolidationTimeout = defaultConsolidateTimeout
	}
	if out.LockTimeout == 0 {
		out.LockTimeout = defaultLockTimeout
	}
	if out.TriggerInterval == 0 {
		out.TriggerInterval = defaultTriggerInterval
	}
	if out.ContextPersonalLimit == 0 {
		out.ContextPersonalLimit = defaultPersonalLimit
	}
	if out.ContextSwarmLimit == 0 {
		out.ContextSwarmLimit = defaultSwarmLimit
	}
	if out.SummarizeOverLength == 0 {
		out.SummarizeOverLength = defaultSummarizeOverLength
	}
	if out.SearchCacheTTL == 0 {
		out.SearchCacheTTL = defaultSearchCacheTTL
	}
	if out.CacheMaxEntries == 0 {
		out.CacheMaxEntries = defaultCacheMaxEntries
	}
	if out.CacheMaxMemoryBytes == 0 {
		out.CacheMaxMemoryBytes = defaultCacheMaxMemory
	}
	if out.SweepInterval == 0 {
		out.SweepInterval = defaultSweepInterval
	}
	return &out
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.CrossAgentThreshold < 0 || c.CrossAgentThreshold > 1 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.HotWindow < 0 || c.WarmWindow < 0 || c.HotWindow > c.WarmWindow {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.PendingFlushSize < 0 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables,
// consulting a .env file when one is found in the working directory or up to
// five directory levels above it.
//
// Supported variables (all optional):
//   - RAPTORFLOW_DUPLICATE_THRESHOLD, RAPTORFLOW_CROSS_AGENT_THRESHOLD
//   - RAPTORFLOW_HOT_WINDOW, RAPTORFLOW_WARM_WINDOW (Go durations)
//   - RAPTORFLOW_PENDING_FLUSH_SIZE, RAPTORFLOW_PENDING_FLUSH_AGE
//   - RAPTORFLOW_CONSOLIDATION_TIMEOUT, RAPTORFLOW_LOCK_TIMEOUT
//   - RAPTORFLOW_CACHE_STRATEGY (lru, lfu, ttl, adaptive)
//   - RAPTORFLOW_CACHE_MAX_ENTRIES, RAPTORFLOW_CACHE_MAX_MEMORY_BYTES
//   - RAPTORFLOW_SEARCH_CACHE_TTL, RAPTORFLOW_SWEEP_INTERVAL
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := findEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}
	var err error

	if cfg.DuplicateThreshold, err = envFloat("RAPTORFLOW_DUPLICATE_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.CrossAgentThreshold, err = envFloat("RAPTORFLOW_CROSS_AGENT_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.HotWindow, err = envDuration("RAPTORFLOW_HOT_WINDOW"); err != nil {
		return nil, err
	}
	if cfg.WarmWindow, err = envDuration("RAPTORFLOW_WARM_WINDOW"); err != nil {
		return nil, err
	}
	if cfg.PendingFlushSize, err = envInt("RAPTORFLOW_PENDING_FLUSH_SIZE"); err != nil {
		return nil, err
	}
	if cfg.PendingFlushAge, err = envDuration("RAPTORFLOW_PENDING_FLUSH_AGE"); err != nil {
		return nil, err
	}
	if cfg.ConsolidationTimeout, err = envDuration("RAPTORFLOW_CONSOLIDATION_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = envDuration("RAPTORFLOW_LOCK_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = envInt("RAPTORFLOW_CACHE_MAX_ENTRIES"); err != nil {
		return nil, err
	}
	memBytes, err := envInt("RAPTORFLOW_CACHE_MAX_MEMORY_BYTES")
	if err != nil {
		return nil, err
	}
	cfg.CacheMaxMemoryBytes = int64(memBytes)
	if cfg.SearchCacheTTL, err = envDuration("RAPTORFLOW_SEARCH_CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("RAPTORFLOW_SWEEP_INTERVAL"); err != nil {
		return nil, err
	}

	strategy, err := cache.ParseStrategy(os.Getenv("RAPTORFLOW_CACHE_STRATEGY"))
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromEnv", err)
	}
	cfg.CacheStrategy = strategy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findEnvFile looks for a .env file in the working directory, then up to
// five parent directories.
func findEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func envFloat(key string) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", err)
	}
	return f, nil
}

func envInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", err)
	}
	return n, nil
}

func envDuration(key string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", err)
	}
	return d, nil
}
