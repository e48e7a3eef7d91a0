package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisClient(mr.Addr(), "", 0)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, c.Set(ctx, "idempotency:abc", `{"id":1}`, time.Hour))
	val, err := c.Get(ctx, "idempotency:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, val)

	mr.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "idempotency:abc")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
