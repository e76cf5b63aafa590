package cache

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func frozen[K comparable, V any](c *Cache[K, V], at *time.Time) {
	c.now = func() time.Time { return *at }
}

func TestPutGet(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestExpiredEntriesAreDroppedOnRead(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](time.Minute, 0)
	frozen(c, &now)

	c.Put("a", 1)
	assert.Equal(t, 1, c.Len())

	now = now.Add(time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSetClampsToTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](time.Minute, 0)
	frozen(c, &now)

	c.Set("a", 1, now.Add(time.Hour))
	now = now.Add(61 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestSetIgnoresPastExpiry(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	c.Set("a", 1, time.Now().Add(-time.Second))
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestFullCacheSweepsExpiredFirst(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](time.Hour, 3)
	frozen(c, &now)

	c.Set("short-1", 1, now.Add(time.Second))
	c.Set("short-2", 2, now.Add(time.Second))
	c.Set("long", 3, now.Add(time.Hour))

	now = now.Add(2 * time.Second)
	c.Put("new", 4)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("long")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestSizeBoundEvictsSoonestExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](time.Hour, 10)
	frozen(c, &now)

	for i := 0; i < 100; i++ {
		c.Set(strconv.Itoa(i), i, now.Add(time.Duration(i+1)*time.Second))
	}
	assert.Equal(t, 10, c.Len())

	_, ok := c.Get("0")
	assert.False(t, ok)
	v, ok := c.Get("99")
	assert.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New[string, int](time.Minute, 1)
	c.Put("a", 1)
	c.Put("a", 2)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
