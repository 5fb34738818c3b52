package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryCacheCountIsParentEntry(t *testing.T) {
	cache := NewMemoryCache(0, ExpireAbsolute)
	cache.SaveData("users", 0, 10, "page-1")
	cache.SaveData("users", 10, 10, "page-2")

	value, ok := cache.LoadData("users", 10, 10)
	assert.True(t, ok)
	assert.Equal(t, "page-2", value)
	assert.Equal(t, -1, cache.LoadTotalRowCount("users"))

	cache.SaveTotalRowCount("users", 25)
	_, ok = cache.LoadData("users", 0, 10)
	assert.False(t, ok, "saving the count drops dependent data")
	assert.Equal(t, 25, cache.LoadTotalRowCount("users"))

	cache.SaveData("users", 0, 10, "page-1")
	cache.Invalidate("users")
	_, ok = cache.LoadData("users", 0, 10)
	assert.False(t, ok)
	assert.Equal(t, -1, cache.LoadTotalRowCount("users"))
}

func TestMemoryCacheAbsoluteExpiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(time.Minute, ExpireAbsolute)
	cache.Now = clock.Now

	cache.SaveData("orders", 0, 0, "all")
	clock.advance(40 * time.Second)
	_, ok := cache.LoadData("orders", 0, 0)
	assert.True(t, ok)

	clock.advance(30 * time.Second)
	_, ok = cache.LoadData("orders", 0, 0)
	assert.False(t, ok)
}

func TestMemoryCacheSlidingExpiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(time.Minute, ExpireSliding)
	cache.Now = clock.Now

	cache.SaveTotalRowCount("orders", 7)
	for i := 0; i < 3; i++ {
		clock.advance(40 * time.Second)
		assert.Equal(t, 7, cache.LoadTotalRowCount("orders"))
	}
	clock.advance(2 * time.Minute)
	assert.Equal(t, -1, cache.LoadTotalRowCount("orders"))
}

func TestMemoryCacheDisabled(t *testing.T) {
	cache := &MemoryCache{Disabled: true}
	assert.False(t, cache.Enabled())
	var missing *MemoryCache
	assert.False(t, missing.Enabled())
}
