package swarm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/snapshot"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/swarm"
)

func TestSnapshotRoundTrip(t *testing.T) {
	mem := swarm.NewConsolidatedMemory("ws_snap", nil)
	now := time.Now()

	require.NoError(t, mem.Add(&swarm.Fragment{
		ID: 1, WorkspaceID: "ws_snap", AgentID: "a1",
		Content:         "tuesday mornings convert best",
		ImportanceScore: 0.9,
		Tier:            swarm.TierHot,
		AccessCount:     4,
		CreatedAt:       now,
		LastAccessed:    now,
		Embedding:       []float64{0.1, 0.2},
		Metadata:        map[string]interface{}{"source": "ab-test"},
	}))
	require.NoError(t, mem.Add(&swarm.Fragment{
		ID: 2, WorkspaceID: "ws_snap", AgentID: "a2",
		Content:   "sqlite writes are slow",
		Tier:      swarm.TierCold,
		CreatedAt: now.Add(-48 * time.Hour),
	}))

	record := mem.Snapshot()
	assert.Equal(t, "ws_snap", record.WorkspaceID)
	assert.False(t, record.CapturedAt.IsZero())
	require.Len(t, record.Fragments, 2)

	restored := swarm.RestoreConsolidatedMemory(record, nil)
	assert.Equal(t, "ws_snap", restored.WorkspaceID())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, mem.Version(), restored.Version())
	assert.Equal(t, map[string]int64{"a1": 1, "a2": 1}, restored.AgentUsage())

	got := restored.ByAgent("a1", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "tuesday mornings convert best", got[0].Content)
	assert.Equal(t, 0.9, got[0].ImportanceScore)
	assert.Equal(t, swarm.TierHot, got[0].Tier)
	assert.Equal(t, int64(4), got[0].AccessCount)
	assert.Equal(t, []float64{0.1, 0.2}, got[0].Embedding)
	assert.Equal(t, "ab-test", got[0].Metadata["source"])
}

func TestRestoreDropsForeignFragments(t *testing.T) {
	record := &snapshot.Record{
		WorkspaceID:          "ws_a",
		ConsolidationVersion: 3,
		Fragments: []snapshot.FragmentRecord{
			{ID: 1, WorkspaceID: "ws_a", AgentID: "a1", Content: "belongs here", Tier: "warm"},
			{ID: 2, WorkspaceID: "ws_other", AgentID: "a2", Content: "smuggled in", Tier: "hot"},
			{ID: 3, WorkspaceID: "ws_a", AgentID: "a1", Content: "bad importance", ImportanceScore: 2, Tier: "hot"},
		},
	}

	restored := swarm.RestoreConsolidatedMemory(record, nil)
	assert.Equal(t, 1, restored.Len())
	assert.Equal(t, int64(3), restored.Version())

	got := restored.ByAgent("a1", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "belongs here", got[0].Content)
	assert.Equal(t, swarm.TierWarm, got[0].Tier)
}
