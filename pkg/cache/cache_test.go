package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/cache"
)

func TestSetGet(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 10, Strategy: cache.StrategyLRU})

	assert.True(t, c.Set("k", "v"))

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate())
}

func TestTTLExpiry(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 10, Strategy: cache.StrategyLRU})

	assert.True(t, c.Set("k", "v", cache.WithTTL(30*time.Millisecond)))

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Expirations)
	assert.Equal(t, 0, c.Len())
}

func TestLRUEvictionOrder(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 3, Strategy: cache.StrategyLRU})

	for _, key := range []string{"A", "B", "C"} {
		require.True(t, c.Set(key, key))
		time.Sleep(2 * time.Millisecond) // distinct access times
	}
	require.True(t, c.Set("D", "D"))

	// A was touched least recently and must be the first victim.
	_, ok := c.Get("A")
	assert.False(t, ok)
	for _, key := range []string{"B", "C", "D"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "expected %s to survive", key)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLFUEviction(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 2, Strategy: cache.StrategyLFU})

	require.True(t, c.Set("cold", 1))
	require.True(t, c.Set("hot", 2))
	for i := 0; i < 3; i++ {
		_, ok := c.Get("hot")
		require.True(t, ok)
	}

	require.True(t, c.Set("new", 3))

	_, ok := c.Get("cold")
	assert.False(t, ok)
	_, ok = c.Get("hot")
	assert.True(t, ok)
}

func TestTTLStrategyPrefersExpired(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 3, Strategy: cache.StrategyTTL})

	require.True(t, c.Set("expiring", 1, cache.WithTTL(10*time.Millisecond)))
	require.True(t, c.Set("keep1", 2))
	require.True(t, c.Set("keep2", 3))

	time.Sleep(20 * time.Millisecond)
	require.True(t, c.Set("new", 4))

	// The expired entry is reclaimed before any live one.
	_, ok := c.Get("expiring")
	assert.False(t, ok)
	for _, key := range []string{"keep1", "keep2", "new"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "expected %s to survive", key)
	}
}

func TestAdaptiveTieBreak(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 2, Strategy: cache.StrategyAdaptive})

	// Equal priority: the older, less-accessed entry loses.
	require.True(t, c.Set("old", 1))
	time.Sleep(5 * time.Millisecond)
	require.True(t, c.Set("young", 2))
	for i := 0; i < 3; i++ {
		_, ok := c.Get("young")
		require.True(t, ok)
	}

	require.True(t, c.Set("new", 3))

	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("young")
	assert.True(t, ok)
}

func TestOversizedValueRejected(t *testing.T) {
	c := cache.New(cache.Config{MaxMemoryBytes: 16, Strategy: cache.StrategyLRU})

	assert.False(t, c.Set("big", "this value is far larger than sixteen bytes"))
	assert.Equal(t, 0, c.Len())

	assert.True(t, c.Set("small", "tiny"))
}

func TestMemoryBoundEviction(t *testing.T) {
	c := cache.New(cache.Config{MaxMemoryBytes: 24, Strategy: cache.StrategyLRU})

	require.True(t, c.Set("a", "0123456789")) // 10 bytes
	time.Sleep(2 * time.Millisecond)
	require.True(t, c.Set("b", "0123456789"))
	time.Sleep(2 * time.Millisecond)
	require.True(t, c.Set("c", "0123456789")) // forces eviction of a

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.LessOrEqual(t, c.MemoryBytes(), int64(24))
}

func TestCleanupExpired(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 10, Strategy: cache.StrategyAdaptive})

	require.True(t, c.Set("a", 1, cache.WithTTL(10*time.Millisecond)))
	require.True(t, c.Set("b", 2, cache.WithTTL(10*time.Millisecond)))
	require.True(t, c.Set("c", 3))

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 2, c.CleanupExpired())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(2), c.Stats().Expirations)
}

func TestDeleteAndClear(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 10, Strategy: cache.StrategyLRU})

	require.True(t, c.Set("a", 1))
	require.True(t, c.Set("b", 2))

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.MemoryBytes())
}

func TestReplaceExistingKey(t *testing.T) {
	c := cache.New(cache.Config{MaxEntries: 2, Strategy: cache.StrategyLRU})

	require.True(t, c.Set("k", "first"))
	require.True(t, c.Set("k", "second"))

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, c.Len())
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name     string
		expected cache.Strategy
		wantErr  bool
	}{
		{name: "lru", expected: cache.StrategyLRU},
		{name: "lfu", expected: cache.StrategyLFU},
		{name: "ttl", expected: cache.StrategyTTL},
		{name: "adaptive", expected: cache.StrategyAdaptive},
		{name: "", expected: cache.StrategyAdaptive},
		{name: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		s, err := cache.ParseStrategy(tt.name)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.expected, s)
		if tt.name != "" {
			assert.Equal(t, tt.name, s.String())
		}
	}
}
