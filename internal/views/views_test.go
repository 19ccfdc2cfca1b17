package views

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounter()
	a, b := uuid.New(), uuid.New()

	n, err := c.Incr(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Incr(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := c.Get(ctx, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a])
	_, seen := counts[b]
	assert.False(t, seen)

	require.NoError(t, c.Delete(ctx, a))
	counts, err = c.Get(ctx, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
