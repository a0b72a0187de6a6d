package history

import (
	lru "github.com/hashicorp/golang-lru"
)

// windowKey identifies one windowed-reduction result: a validator's
// history index, the reduction kind, and the epoch range queried.
type windowKey struct {
	historyIndex int
	kind         string
	from, to     uint16
}

// ViewCache memoizes HistoryView windowed reductions per
// (historyIndex, epochRange), so a caller that re-reads the same window
// avoids rescanning the same ring-buffer slice. The cycle and scoring
// packages read View directly and do not use a ViewCache.
type ViewCache struct {
	cache *lru.Cache
}

// NewViewCache allocates a cache holding up to capacity entries.
func NewViewCache(capacity int) *ViewCache {
	c, _ := lru.New(capacity) // lru.New only errors for capacity <= 0
	return &ViewCache{cache: c}
}

// MaxCommission is MaxCommission memoized by (historyIndex, from, to).
// The cached View must outlive the call (callers pass a fresh View per
// ComputeScore invocation; the cache key includes historyIndex so
// entries from different validators never collide).
func (c *ViewCache) MaxCommission(historyIndex int, from, to uint16, view *View) (uint8, error) {
	key := windowKey{historyIndex, "max_commission", from, to}
	if v, ok := c.cache.Get(key); ok {
		cached := v.(cachedU8)
		return cached.value, cached.err
	}
	val, err := view.MaxCommission(from, to)
	c.cache.Add(key, cachedU8{value: val, err: err})
	return val, err
}

// AvgMevCommission is AvgMevCommission memoized by
// (historyIndex, from, to). AvgMevCommission never errors, so only the
// value is cached.
func (c *ViewCache) AvgMevCommission(historyIndex int, from, to uint16, view *View) uint16 {
	key := windowKey{historyIndex, "avg_mev_commission", from, to}
	if v, ok := c.cache.Get(key); ok {
		return v.(uint16)
	}
	val := view.AvgMevCommission(from, to)
	c.cache.Add(key, val)
	return val
}

// Purge discards every cached entry. Nothing purges the cache
// automatically; its owner calls Purge when cached windows go stale.
func (c *ViewCache) Purge() {
	c.cache.Purge()
}

type cachedU8 struct {
	value uint8
	err   error
}
