package ristretto

import (
	"fmt"
	"time"

	"github.com/caasmo/farmgate/cache"
	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a string keyed ristretto cache. Writes are applied
// synchronously so a value is readable right after Set.
type Cache[V any] struct {
	cache *ristretto.Cache[string, V]
}

var _ cache.Cache[string, int] = (*Cache[int])(nil)

func (rc *Cache[V]) Get(key string) (V, bool) {
	return rc.cache.Get(key)
}

func (rc *Cache[V]) Set(key string, value V, cost int64) bool {
	ok := rc.cache.Set(key, value, cost)
	rc.cache.Wait()
	return ok
}

func (rc *Cache[V]) SetWithTTL(key string, value V, cost int64, ttl time.Duration) bool {
	ok := rc.cache.SetWithTTL(key, value, cost, ttl)
	rc.cache.Wait()
	return ok
}

func (rc *Cache[V]) Del(key string) {
	rc.cache.Del(key)
}

// Close stops the ristretto goroutines.
func (rc *Cache[V]) Close() {
	rc.cache.Close()
}

type level struct {
	numCounters int64
	maxCost     int64
}

// levels size the cache by expected number of entries, every entry
// costing 1.
var levels = map[string]level{
	"small":      {numCounters: 1e4, maxCost: 1e3},
	"medium":     {numCounters: 1e5, maxCost: 1e4},
	"large":      {numCounters: 1e6, maxCost: 1e5},
	"very-large": {numCounters: 1e7, maxCost: 1e6},
}

// New creates a cache sized by level: small, medium, large or very-large.
func New[V any](sizeLevel string) (*Cache[V], error) {
	l, ok := levels[sizeLevel]
	if !ok {
		return nil, fmt.Errorf("invalid cache level: %q", sizeLevel)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: l.numCounters,
		MaxCost:     l.maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	return &Cache[V]{cache: c}, nil
}
