// Package cache provides a bounded in-memory key/value cache with multiple
// eviction strategies (LRU, LFU, TTL, Adaptive) and a cross-cache Manager
// for periodic cleanup and memory reporting.
//
// Cache entries are derived state: losing an entry never loses information,
// only latency. Every consumer must be able to fall through to its canonical
// store on a miss.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// Strategy selects the eviction policy of an AdaptiveCache.
//
// The set of strategies is closed; adding a new one requires updating every
// switch over Strategy in this package.
type Strategy int

const (
	// StrategyLRU evicts the least-recently-touched entry.
	StrategyLRU Strategy = iota

	// StrategyLFU evicts the entry with the lowest access count.
	StrategyLFU

	// StrategyTTL evicts an already-expired entry first, falling back to LRU
	// when none are expired.
	StrategyTTL

	// StrategyAdaptive evicts the entry with the minimum score
	// access_count / (age_hours + 1) * priority.
	StrategyAdaptive
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyLRU:
		return "lru"
	case StrategyLFU:
		return "lfu"
	case StrategyTTL:
		return "ttl"
	case StrategyAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a strategy name ("lru", "lfu", "ttl", "adaptive")
// into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "lru":
		return StrategyLRU, nil
	case "lfu":
		return StrategyLFU, nil
	case "ttl":
		return StrategyTTL, nil
	case "adaptive", "":
		return StrategyAdaptive, nil
	default:
		return StrategyAdaptive, fmt.Errorf("unknown cache strategy %q", name)
	}
}

// Entry is a single cached value with its bookkeeping.
type Entry struct {
	// Key is the cache key of the entry.
	Key string

	// Value is the cached payload, typically a ranked result list or a
	// content blob. The cache never inspects it beyond size accounting.
	Value interface{}

	// CreatedAt is when the entry was inserted.
	CreatedAt time.Time

	// LastAccessed is when the entry was last returned by Get.
	LastAccessed time.Time

	// AccessCount is the number of Get hits on this entry.
	AccessCount int64

	// SizeBytes is the accounted size of the value.
	SizeBytes int64

	// TTL is the entry lifetime. Zero means the entry never expires.
	TTL time.Duration

	// Priority weights the entry under the Adaptive strategy. Default 1.0.
	Priority float64
}

// expired reports whether the entry's TTL has elapsed at the given instant.
func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) >= e.TTL
}

// adaptiveScore computes the Adaptive eviction score of the entry.
// Lower scores are evicted first.
func (e *Entry) adaptiveScore(now time.Time) float64 {
	ageHours := now.Sub(e.CreatedAt).Hours()
	return float64(e.AccessCount) / (ageHours + 1) * e.Priority
}

// Config contains the bounds and strategy of an AdaptiveCache.
type Config struct {
	// MaxEntries is the maximum number of entries. Zero means unbounded.
	MaxEntries int

	// MaxMemoryBytes is the memory budget across all entries.
	// Zero means unbounded.
	MaxMemoryBytes int64

	// Strategy is the eviction policy. Defaults to StrategyAdaptive.
	Strategy Strategy
}

// AdaptiveCache is a bounded key/value store guarded by a mutex, safe for
// concurrent use by multiple goroutines.
//
// TTL expiry is lazy (checked on access) and always takes precedence over the
// configured strategy's score-based eviction choice: an expired entry is
// removable regardless of strategy.
//
// Example:
//
//	c := cache.New(cache.Config{MaxEntries: 1000, Strategy: cache.StrategyLRU})
//	c.Set("k", payload, cache.WithTTL(time.Minute))
//	if v, ok := c.Get("k"); ok {
//	    // use v
//	}
type AdaptiveCache struct {
	mu sync.Mutex

	cfg     Config
	entries map[string]*Entry

	// memoryBytes is the accounted size of all live entries.
	memoryBytes int64

	stats Stats
}

// New creates a new AdaptiveCache with the given bounds and strategy.
func New(cfg Config) *AdaptiveCache {
	return &AdaptiveCache{
		cfg:     cfg,
		entries: make(map[string]*Entry),
	}
}

// SetOption configures a single Set call.
type SetOption func(*Entry)

// WithTTL sets the entry lifetime. Entries with no TTL never expire.
func WithTTL(ttl time.Duration) SetOption {
	return func(e *Entry) {
		e.TTL = ttl
	}
}

// WithPriority sets the Adaptive-strategy priority weight of the entry.
func WithPriority(priority float64) SetOption {
	return func(e *Entry) {
		e.Priority = priority
	}
}

// WithSize overrides the estimated value size used for memory accounting.
func WithSize(sizeBytes int64) SetOption {
	return func(e *Entry) {
		e.SizeBytes = sizeBytes
	}
}

// Get returns the cached value for key.
//
// On a hit it refreshes the entry's recency and frequency bookkeeping and
// returns the value. An expired entry is removed, counted as an expiration,
// and reported as a miss.
func (c *AdaptiveCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	now := time.Now()
	if entry.expired(now) {
		c.removeLocked(key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccessed = now
	entry.AccessCount++
	c.stats.Hits++
	return entry.Value, true
}

// Set inserts or replaces the value for key, evicting as needed to satisfy
// the entry and memory bounds first.
//
// Returns false when the single value's size exceeds the cache's whole memory
// budget; the caller must fall through to its canonical store.
func (c *AdaptiveCache) Set(key string, value interface{}, opts ...SetOption) bool {
	now := time.Now()
	entry := &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		LastAccessed: now,
		SizeBytes:    estimateSize(value),
		Priority:     1.0,
	}
	for _, opt := range opts {
		opt(entry)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxMemoryBytes > 0 && entry.SizeBytes > c.cfg.MaxMemoryBytes {
		return false
	}

	// Replacing an existing key frees its accounting before bounds are checked.
	if old, ok := c.entries[key]; ok {
		c.memoryBytes -= old.SizeBytes
		delete(c.entries, key)
	}

	for c.overCapacityLocked(entry.SizeBytes) {
		if !c.evictOneLocked(now) {
			break
		}
	}

	c.entries[key] = entry
	c.memoryBytes += entry.SizeBytes
	return true
}

// Delete removes the entry for key. Returns true if the entry existed.
func (c *AdaptiveCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeLocked(key)
	return true
}

// Clear removes all entries.
func (c *AdaptiveCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.memoryBytes = 0
}

// Len returns the number of live entries.
func (c *AdaptiveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MemoryBytes returns the accounted size of all live entries.
func (c *AdaptiveCache) MemoryBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryBytes
}

// MaxMemoryBytes returns the configured memory budget (zero if unbounded).
func (c *AdaptiveCache) MaxMemoryBytes() int64 {
	return c.cfg.MaxMemoryBytes
}

// CleanupExpired removes every expired entry and returns how many were removed.
//
// This is the sweep half of TTL expiry; Get performs the lazy half.
func (c *AdaptiveCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			c.removeLocked(key)
			c.stats.Expirations++
			removed++
		}
	}
	return removed
}

// EvictFraction force-evicts the given fraction of current entries using the
// cache's strategy, and returns how many entries were removed.
//
// Used by the Manager under memory pressure.
func (c *AdaptiveCache) EvictFraction(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target := int(float64(len(c.entries)) * fraction)
	if target == 0 && len(c.entries) > 0 {
		target = 1
	}

	now := time.Now()
	removed := 0
	for i := 0; i < target; i++ {
		if !c.evictOneLocked(now) {
			break
		}
		removed++
	}
	return removed
}

// Stats returns a snapshot of the cache's counters.
func (c *AdaptiveCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// overCapacityLocked reports whether inserting incomingSize more bytes and one
// more entry would exceed the configured bounds.
func (c *AdaptiveCache) overCapacityLocked(incomingSize int64) bool {
	if len(c.entries) == 0 {
		return false
	}
	if c.cfg.MaxEntries > 0 && len(c.entries)+1 > c.cfg.MaxEntries {
		return true
	}
	if c.cfg.MaxMemoryBytes > 0 && c.memoryBytes+incomingSize > c.cfg.MaxMemoryBytes {
		return true
	}
	return false
}

// evictOneLocked removes one entry chosen by the active strategy.
//
// An expired entry always wins the selection, regardless of strategy. Returns
// false when the cache is empty.
func (c *AdaptiveCache) evictOneLocked(now time.Time) bool {
	if len(c.entries) == 0 {
		return false
	}

	// Expired entries are free to reclaim under any strategy.
	for key, entry := range c.entries {
		if entry.expired(now) {
			c.removeLocked(key)
			c.stats.Expirations++
			return true
		}
	}

	var victim *Entry
	switch c.cfg.Strategy {
	case StrategyLFU:
		for _, entry := range c.entries {
			if victim == nil ||
				entry.AccessCount < victim.AccessCount ||
				(entry.AccessCount == victim.AccessCount && entry.LastAccessed.Before(victim.LastAccessed)) {
				victim = entry
			}
		}
	case StrategyAdaptive:
		for _, entry := range c.entries {
			if victim == nil {
				victim = entry
				continue
			}
			score, best := entry.adaptiveScore(now), victim.adaptiveScore(now)
			if score < best || (score == best && entry.LastAccessed.Before(victim.LastAccessed)) {
				victim = entry
			}
		}
	default:
		// StrategyLRU, and StrategyTTL once no entry is expired.
		for _, entry := range c.entries {
			if victim == nil || entry.LastAccessed.Before(victim.LastAccessed) {
				victim = entry
			}
		}
	}

	c.removeLocked(victim.Key)
	c.stats.Evictions++
	return true
}

// removeLocked deletes an entry and releases its memory accounting.
func (c *AdaptiveCache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	c.memoryBytes -= entry.SizeBytes
	delete(c.entries, key)
}

// estimateSize estimates the memory footprint of a value for accounting.
//
// Callers with better knowledge of their payload should pass WithSize.
const defaultEntrySize = 256

func estimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case string:
		return int64(len(v))
	case []byte:
		return int64(len(v))
	default:
		return defaultEntrySize
	}
}
