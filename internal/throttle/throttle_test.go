package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false, false} {
		ok, err := l.Allow(ctx, "ip:alice")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, err := l.Allow(ctx, "ip:bob")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "ip:alice")
	require.NoError(t, err)
	assert.True(t, ok, "new window")
}

func TestMemoryLimiterDisabled(t *testing.T) {
	l := NewMemoryLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
