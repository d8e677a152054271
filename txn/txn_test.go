package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAndDelete(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Prepare(1, 10, 100, 42, "load-1"))
	assert.True(t, r.IsPrepared(1, 10, 100, 42))
	assert.Equal(t, 1, r.Count())

	// Re-prepare with the same load id is a no-op.
	require.NoError(t, r.Prepare(1, 10, 100, 42, "load-1"))
	assert.Equal(t, 1, r.Count())

	// A different load id conflicts.
	require.ErrorIs(t, r.Prepare(1, 10, 100, 42, "load-2"), ErrConflict)

	require.NoError(t, r.Delete(1, 10, 100, 42))
	assert.False(t, r.IsPrepared(1, 10, 100, 42))

	// Delete is idempotent.
	require.NoError(t, r.Delete(1, 10, 100, 42))
	assert.Zero(t, r.Count())
}

func TestDistinctTablets(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Prepare(1, 10, 100, 42, "load-1"))
	require.NoError(t, r.Prepare(1, 10, 101, 43, "load-1"))
	assert.Equal(t, 2, r.Count())

	require.NoError(t, r.Delete(1, 10, 100, 42))
	assert.False(t, r.IsPrepared(1, 10, 100, 42))
	assert.True(t, r.IsPrepared(1, 10, 101, 43))
}
