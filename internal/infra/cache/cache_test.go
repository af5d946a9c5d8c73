package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/portfolio/internal/infra/database"
)

func TestMemory(t *testing.T) {
	c := NewMemory(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory(20 * time.Millisecond)
	c.Set("k", []byte("v"))
	time.Sleep(40 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemcached(t *testing.T) {
	addr := os.Getenv("PORTFOLIO_TEST_MEMCACHED")
	if addr == "" {
		t.Skip("PORTFOLIO_TEST_MEMCACHED not set")
	}
	mc, err := database.NewMemcached(addr)
	require.NoError(t, err)

	c := NewMemcached(mc, time.Minute)
	key := "portfolio:test:" + time.Now().Format("150405.000000")
	c.Delete(key)
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, []byte(`[]`))
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(v))

	c.Delete(key)
	_, ok = c.Get(key)
	assert.False(t, ok)
}
