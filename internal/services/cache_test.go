package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	var out []string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, time.Minute))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)

	now = now.Add(2 * time.Minute)
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	var n int
	found, err = c.Get(ctx, "k", &n)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Close())
}
