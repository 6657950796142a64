package swarm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/swarm"
)

func TestMemoryErrorMessage(t *testing.T) {
	err := swarm.NewMemoryError("Consolidate", swarm.ErrConcurrency)
	assert.Equal(t, "raptorflow: Consolidate: consolidation lock timeout", err.Error())
}

func TestMemoryErrorUnwrap(t *testing.T) {
	err := swarm.NewMemoryError("Add", swarm.ErrWorkspaceMismatch)

	assert.ErrorIs(t, err, swarm.ErrWorkspaceMismatch)

	var memErr *swarm.MemoryError
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, "Add", memErr.Op)
	assert.Equal(t, swarm.ErrWorkspaceMismatch, memErr.Err)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, swarm.NewMemoryError("Anything", nil))
}

func TestMemoryErrorWrapsArbitraryErrors(t *testing.T) {
	inner := errors.New("disk full")
	err := swarm.NewMemoryError("Save", inner)
	assert.ErrorIs(t, err, inner)
}
