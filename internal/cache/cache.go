package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds a cache built with a non-positive size.
const DefaultMaxEntries = 10000

type entry[V any] struct {
	val V
	exp time.Time
}

// Cache keeps values until their expiry or until the size bound pushes the
// soonest-expiring entry out. Expired entries are dropped on read and swept
// before any eviction.
type Cache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]entry[V]
	ttl  time.Duration
	max  int
	now  func() time.Time
}

// New builds a cache whose entries live at most ttl.
func New[K comparable, V any](ttl time.Duration, maxEntries int) *Cache[K, V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache[K, V]{data: make(map[K]entry[V]), ttl: ttl, max: maxEntries, now: time.Now}
}

func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[k]
	if ok && c.now().Before(e.exp) {
		return e.val, true
	}
	if ok {
		delete(c.data, k)
	}
	var zero V
	return zero, false
}

// Put stores v for the cache's ttl.
func (c *Cache[K, V]) Put(k K, v V) {
	c.Set(k, v, time.Time{})
}

// Set stores v until exp, clamped to the cache's ttl. A zero exp means the
// full ttl. Values that would already be expired are not stored.
func (c *Cache[K, V]) Set(k K, v V, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	limit := now.Add(c.ttl)
	if exp.IsZero() || exp.After(limit) {
		exp = limit
	}
	if !exp.After(now) {
		delete(c.data, k)
		return
	}
	if _, ok := c.data[k]; !ok && len(c.data) >= c.max {
		c.sweep(now)
		if len(c.data) >= c.max {
			c.evictSoonest()
		}
	}
	c.data[k] = entry[V]{val: v, exp: exp}
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache[K, V]) sweep(now time.Time) {
	for k, e := range c.data {
		if !now.Before(e.exp) {
			delete(c.data, k)
		}
	}
}

func (c *Cache[K, V]) evictSoonest() {
	var (
		victim K
		at     time.Time
		found  bool
	)
	for k, e := range c.data {
		if !found || e.exp.Before(at) {
			victim, at, found = k, e.exp, true
		}
	}
	if found {
		delete(c.data, victim)
	}
}
