package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/embedder/mock"
	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/swarm"
)

func TestEmbedIsDeterministic(t *testing.T) {
	m := mock.New()
	ctx := context.Background()

	a, err := m.Embed(ctx, "tuesday mornings convert best")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "tuesday mornings convert best")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, m.Dimensions())
}

func TestEmbedProducesUnitVectors(t *testing.T) {
	m := mock.New()

	vec, err := m.Embed(context.Background(), "some text")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestDifferentTextsDiffer(t *testing.T) {
	m := mock.New()
	ctx := context.Background()

	a, err := m.Embed(ctx, "first text")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "second text")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Less(t, swarm.CosineSimilarity(a, b), 0.999)
}

func TestEmbedBatch(t *testing.T) {
	m := mock.NewWithDimensions(16)
	ctx := context.Background()

	vectors, err := m.EmbedBatch(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	single, err := m.Embed(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1])
	assert.Len(t, vectors[0], 16)
}

func TestNewWithDimensionsFallsBack(t *testing.T) {
	m := mock.NewWithDimensions(0)
	assert.Equal(t, 64, m.Dimensions())
	assert.NoError(t, m.Close())
}
