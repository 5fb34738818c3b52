package datasource

import (
	"fmt"
	"sync"
	"time"
)

// Cache stores select results per view key. The total row count is the parent
// entry of a key: saving a count drops the data entries cached under it.
type Cache interface {
	Enabled() bool
	LoadData(key string, startRowIndex, maximumRows int) (any, bool)
	SaveData(key string, startRowIndex, maximumRows int, data any)
	LoadTotalRowCount(key string) int
	SaveTotalRowCount(key string, count int)
	Invalidate(key string)
}

// ExpirationPolicy controls how MemoryCache entries age.
type ExpirationPolicy int

const (
	// ExpireAbsolute expires entries Duration after they were saved.
	ExpireAbsolute ExpirationPolicy = iota
	// ExpireSliding extends an entry's lifetime on every hit.
	ExpireSliding
)

type cacheEntry struct {
	value   any
	expires time.Time
}

type cacheBucket struct {
	count *cacheEntry
	data  map[string]*cacheEntry
}

// MemoryCache is an in-process Cache. A zero Duration never expires.
type MemoryCache struct {
	Duration time.Duration
	Policy   ExpirationPolicy
	Now      func() time.Time
	Disabled bool

	mu      sync.Mutex
	buckets map[string]*cacheBucket
}

// NewMemoryCache returns an enabled cache.
func NewMemoryCache(duration time.Duration, policy ExpirationPolicy) *MemoryCache {
	return &MemoryCache{Duration: duration, Policy: policy}
}

// Enabled implements Cache.
func (c *MemoryCache) Enabled() bool {
	return c != nil && !c.Disabled
}

func (c *MemoryCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *MemoryCache) newEntry(value any) *cacheEntry {
	entry := &cacheEntry{value: value}
	if c.Duration > 0 {
		entry.expires = c.now().Add(c.Duration)
	}
	return entry
}

func (c *MemoryCache) live(entry *cacheEntry) bool {
	if entry == nil {
		return false
	}
	if entry.expires.IsZero() {
		return true
	}
	now := c.now()
	if !now.Before(entry.expires) {
		return false
	}
	if c.Policy == ExpireSliding {
		entry.expires = now.Add(c.Duration)
	}
	return true
}

func dataKey(startRowIndex, maximumRows int) string {
	return fmt.Sprintf("%d:%d", startRowIndex, maximumRows)
}

func (c *MemoryCache) bucket(key string, create bool) *cacheBucket {
	if c.buckets == nil {
		if !create {
			return nil
		}
		c.buckets = map[string]*cacheBucket{}
	}
	b, ok := c.buckets[key]
	if !ok && create {
		b = &cacheBucket{data: map[string]*cacheEntry{}}
		c.buckets[key] = b
	}
	return b
}

// LoadData implements Cache.
func (c *MemoryCache) LoadData(key string, startRowIndex, maximumRows int) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(key, false)
	if b == nil {
		return nil, false
	}
	if b.count != nil && !c.live(b.count) {
		delete(c.buckets, key)
		return nil, false
	}
	dk := dataKey(startRowIndex, maximumRows)
	entry := b.data[dk]
	if !c.live(entry) {
		delete(b.data, dk)
		return nil, false
	}
	return entry.value, true
}

// SaveData implements Cache.
func (c *MemoryCache) SaveData(key string, startRowIndex, maximumRows int, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucket(key, true).data[dataKey(startRowIndex, maximumRows)] = c.newEntry(data)
}

// LoadTotalRowCount implements Cache; -1 means unknown.
func (c *MemoryCache) LoadTotalRowCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(key, false)
	if b == nil || b.count == nil {
		return -1
	}
	if !c.live(b.count) {
		delete(c.buckets, key)
		return -1
	}
	return b.count.value.(int)
}

// SaveTotalRowCount implements Cache. Data entries under key are dropped.
func (c *MemoryCache) SaveTotalRowCount(key string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(key, true)
	b.count = c.newEntry(count)
	b.data = map[string]*cacheEntry{}
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, key)
}

// CacheCall is one call observed by Recorder.
type CacheCall struct {
	Op            string
	Key           string
	StartRowIndex int
	MaximumRows   int
	Value         any
}

// Recorder wraps a Cache and records every call in order.
type Recorder struct {
	Cache Cache

	mu    sync.Mutex
	calls []CacheCall
}

// NewRecorder wraps cache, or a fresh MemoryCache when cache is nil.
func NewRecorder(cache Cache) *Recorder {
	if cache == nil {
		cache = NewMemoryCache(0, ExpireAbsolute)
	}
	return &Recorder{Cache: cache}
}

func (r *Recorder) record(call CacheCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []CacheCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CacheCall(nil), r.calls...)
}

// Ops returns the recorded operation names.
func (r *Recorder) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, call := range calls {
		ops[i] = call.Op
	}
	return ops
}

func (r *Recorder) Enabled() bool { return r.Cache.Enabled() }

func (r *Recorder) LoadData(key string, startRowIndex, maximumRows int) (any, bool) {
	value, ok := r.Cache.LoadData(key, startRowIndex, maximumRows)
	r.record(CacheCall{Op: "LoadData", Key: key, StartRowIndex: startRowIndex, MaximumRows: maximumRows, Value: value})
	return value, ok
}

func (r *Recorder) SaveData(key string, startRowIndex, maximumRows int, data any) {
	r.record(CacheCall{Op: "SaveData", Key: key, StartRowIndex: startRowIndex, MaximumRows: maximumRows, Value: data})
	r.Cache.SaveData(key, startRowIndex, maximumRows, data)
}

func (r *Recorder) LoadTotalRowCount(key string) int {
	n := r.Cache.LoadTotalRowCount(key)
	r.record(CacheCall{Op: "LoadTotalRowCount", Key: key, Value: n})
	return n
}

func (r *Recorder) SaveTotalRowCount(key string, count int) {
	r.record(CacheCall{Op: "SaveTotalRowCount", Key: key, Value: count})
	r.Cache.SaveTotalRowCount(key, count)
}

func (r *Recorder) Invalidate(key string) {
	r.record(CacheCall{Op: "Invalidate", Key: key})
	r.Cache.Invalidate(key)
}
