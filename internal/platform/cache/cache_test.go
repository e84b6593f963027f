package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetExpired(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("a", 1, time.Minute)
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.InvalidateAll()
	assert.Equal(t, 0, c.Size())
}

func TestTTLCacheRoundTrip(t *testing.T) {
	tc := NewTTLCache(time.Minute)
	ctx := context.Background()
	tc.Set(ctx, "key", "value")
	v, ok := tc.Get(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	tc.Delete(ctx, "key")
	_, ok = tc.Get(ctx, "key")
	assert.False(t, ok)
}
