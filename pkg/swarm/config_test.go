package swarm_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/cache"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/swarm"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&swarm.Config{}).Validate())
	assert.NoError(t, (&swarm.Config{DuplicateThreshold: 0.9}).Validate())

	tests := []struct {
		name string
		cfg  swarm.Config
	}{
		{"duplicate threshold above one", swarm.Config{DuplicateThreshold: 1.5}},
		{"negative duplicate threshold", swarm.Config{DuplicateThreshold: -0.1}},
		{"cross agent threshold above one", swarm.Config{CrossAgentThreshold: 2}},
		{"hot window exceeds warm window", swarm.Config{HotWindow: 48 * time.Hour, WarmWindow: time.Hour}},
		{"negative pending flush size", swarm.Config{PendingFlushSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), swarm.ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RAPTORFLOW_DUPLICATE_THRESHOLD", "0.9")
	t.Setenv("RAPTORFLOW_CROSS_AGENT_THRESHOLD", "0.7")
	t.Setenv("RAPTORFLOW_HOT_WINDOW", "30m")
	t.Setenv("RAPTORFLOW_WARM_WINDOW", "12h")
	t.Setenv("RAPTORFLOW_PENDING_FLUSH_SIZE", "64")
	t.Setenv("RAPTORFLOW_CACHE_STRATEGY", "lru")
	t.Setenv("RAPTORFLOW_CACHE_MAX_ENTRIES", "512")
	t.Setenv("RAPTORFLOW_SEARCH_CACHE_TTL", "1m")

	cfg, err := swarm.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.DuplicateThreshold)
	assert.Equal(t, 0.7, cfg.CrossAgentThreshold)
	assert.Equal(t, 30*time.Minute, cfg.HotWindow)
	assert.Equal(t, 12*time.Hour, cfg.WarmWindow)
	assert.Equal(t, 64, cfg.PendingFlushSize)
	assert.Equal(t, cache.StrategyLRU, cfg.CacheStrategy)
	assert.Equal(t, 512, cfg.CacheMaxEntries)
	assert.Equal(t, time.Minute, cfg.SearchCacheTTL)
}

func TestLoadConfigFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("RAPTORFLOW_DUPLICATE_THRESHOLD", "not-a-number")
	_, err := swarm.LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromEnvRejectsBadStrategy(t *testing.T) {
	t.Setenv("RAPTORFLOW_CACHE_STRATEGY", "fifo")
	_, err := swarm.LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"duplicate_threshold": 0.95,
		"pending_flush_size": 16,
		"hot_window": 1800000000000
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := swarm.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.DuplicateThreshold)
	assert.Equal(t, 16, cfg.PendingFlushSize)
	assert.Equal(t, 30*time.Minute, cfg.HotWindow)
}

func TestLoadConfigFromJSONErrors(t *testing.T) {
	_, err := swarm.LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = swarm.LoadConfigFromJSON(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"duplicate_threshold": 3}`), 0o644))
	_, err = swarm.LoadConfigFromJSON(path)
	assert.ErrorIs(t, err, swarm.ErrInvalidConfig)
}
