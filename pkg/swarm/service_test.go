package swarm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder/mock"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/swarm"
)

func TestMemoryServiceCoordinatorPerWorkspace(t *testing.T) {
	svc, err := swarm.NewMemoryService(testConfig())
	require.NoError(t, err)
	defer svc.Close()

	a := svc.Coordinator("ws_a")
	require.NotNil(t, a)
	assert.Same(t, a, svc.Coordinator("ws_a"))

	b := svc.Coordinator("ws_b")
	require.NotNil(t, b)
	assert.NotSame(t, a, b)

	assert.ElementsMatch(t, []string{"ws_a", "ws_b"}, svc.Workspaces())
}

func TestMemoryServiceRegistersReadCaches(t *testing.T) {
	svc, err := swarm.NewMemoryService(testConfig())
	require.NoError(t, err)
	defer svc.Close()

	coord := svc.Coordinator("ws_a")
	require.NotNil(t, coord)

	registered, ok := svc.CacheManager().Cache("swarm-read:ws_a")
	require.True(t, ok)
	assert.Same(t, coord.ReadCache(), registered)
}

func TestMemoryServiceEndToEnd(t *testing.T) {
	svc, err := swarm.NewMemoryService(testConfig(),
		swarm.WithEmbedder(mock.New()))
	require.NoError(t, err)
	defer svc.Close()

	coord := svc.Coordinator("ws_acme")
	coord.InitializeAgentMemory("agent_copy", "copywriter")
	coord.InitializeAgentMemory("agent_data", "analyst")

	require.True(t, coord.RecordAgentMemory("agent_copy",
		"personalized subject lines double the open rate",
		swarm.WithImportance(0.9)))
	require.True(t, coord.RecordAgentMemory("agent_data",
		"weekly report generation takes four minutes"))

	ctx := context.Background()
	_, err = coord.ConsolidateSwarmMemories(ctx, true)
	require.NoError(t, err)

	// The mock embedder is deterministic per text, so the exact content
	// ranks first by cosine similarity.
	query := "personalized subject lines double the open rate"
	results := coord.SearchSwarmMemory(ctx, query, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, query, results[0].Content)

	agentCtx := coord.GetAgentContext(ctx, "agent_data", query)
	require.NotNil(t, agentCtx)
	assert.Equal(t, "analyst", agentCtx.AgentType)
	require.NotEmpty(t, agentCtx.RelevantSwarmMemory)
	require.NotEmpty(t, agentCtx.CrossAgentInsights)
	assert.Equal(t, "agent_copy", agentCtx.CrossAgentInsights[0].AgentID)
}

func TestMemoryServiceCoordinatorAfterClose(t *testing.T) {
	svc, err := swarm.NewMemoryService(testConfig())
	require.NoError(t, err)

	require.NotNil(t, svc.Coordinator("ws_a"))
	require.NoError(t, svc.Close())

	assert.Nil(t, svc.Coordinator("ws_b"))
	assert.NoError(t, svc.Close())
}

func TestNewMemoryServiceRejectsInvalidConfig(t *testing.T) {
	_, err := swarm.NewMemoryService(&swarm.Config{CrossAgentThreshold: -1})
	assert.ErrorIs(t, err, swarm.ErrInvalidConfig)
}
