package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutAddrIsMemory(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	_, ok := c.(*Memory)
	assert.True(t, ok)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok := c.Get(ctx, "0xabc:symbol")
	assert.False(t, ok)

	c.Set(ctx, "0xabc:symbol", "DSC")
	v, ok := c.Get(ctx, "0xabc:symbol")
	assert.True(t, ok)
	assert.Equal(t, "DSC", v)
}

func TestNewRedisRequiresAddr(t *testing.T) {
	_, err := NewRedis(Config{Addr: "  "})
	assert.Error(t, err)
}
