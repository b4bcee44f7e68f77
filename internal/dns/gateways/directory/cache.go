package directory

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// dnCache remembers the directory DN found for a login so repeated logins
// skip the user search. It tracks hits, misses and evictions.
type dnCache interface {
	Get(login string) (string, bool)
	Put(login, dn string)
	Remove(login string)
	Len() int
	Stats() (hits, misses, evictions uint64)
}

type lruDNCache struct {
	lru       *lru.Cache[string, string]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op dnCache used when size <= 0.
type disabledCache struct{}

// newDNCache creates a cache holding up to size entries. If size <= 0, a
// disabled no-op cache is returned that always misses.
func newDNCache(size int) (dnCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var c lruDNCache
	// NewWithEvict also observes removals.
	cache, err := lru.NewWithEvict(size, func(_ string, _ string) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = cache
	return &c, nil
}

func (c *lruDNCache) Get(login string) (string, bool) {
	if dn, ok := c.lru.Get(login); ok {
		atomic.AddUint64(&c.hits, 1)
		return dn, true
	}
	atomic.AddUint64(&c.misses, 1)
	return "", false
}

func (c *lruDNCache) Put(login, dn string) { c.lru.Add(login, dn) }

func (c *lruDNCache) Remove(login string) { c.lru.Remove(login) }

func (c *lruDNCache) Len() int { return c.lru.Len() }

func (c *lruDNCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(string) (string, bool) { return "", false }

func (d *disabledCache) Put(string, string) {}

func (d *disabledCache) Remove(string) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ dnCache = (*lruDNCache)(nil)
var _ dnCache = (*disabledCache)(nil)
