// core/primes/cache.go
package primes

import (
	"container/list"
	"math/big"
	"sync"
)

// DefaultCacheSize bounds the memo when no capacity is configured. Entries
// key on full decimal strings, which grow wide in long runs, so the bound
// stays small.
const DefaultCacheSize = 512

// Cached memoizes another oracle's verdicts in a size-bounded LRU map.
// Registers hold still between step boundaries, so the engine asks about the
// same numerator at several microticks of one step; the memo answers the
// repeats without re-probing. Safe for concurrent use: grid-expanded runs
// share one oracle instance.
type Cached struct {
	inner Oracle

	mu  sync.Mutex
	cap int
	ll  *list.List
	m   map[string]*list.Element
}

type cacheNode struct {
	key     string
	verdict bool
}

// NewCached wraps inner with a memo holding up to capacity verdicts.
// Capacity <= 0 means DefaultCacheSize.
func NewCached(inner Oracle, capacity int) *Cached {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cached{
		inner: inner,
		cap:   capacity,
		ll:    list.New(),
		m:     make(map[string]*list.Element, capacity),
	}
}

// IsPrimeForTrigger answers from the memo when it can. The inner probe runs
// outside the lock, so two runs racing on one value may both test it; the
// later insert simply overwrites the earlier.
func (c *Cached) IsPrimeForTrigger(n *big.Int) bool {
	key := new(big.Int).Abs(n).String()

	c.mu.Lock()
	if e, ok := c.m[key]; ok {
		c.ll.MoveToFront(e)
		verdict := e.Value.(*cacheNode).verdict
		c.mu.Unlock()
		return verdict
	}
	c.mu.Unlock()

	verdict := c.inner.IsPrimeForTrigger(n)

	c.mu.Lock()
	if e, ok := c.m[key]; ok {
		e.Value.(*cacheNode).verdict = verdict
		c.ll.MoveToFront(e)
	} else {
		c.m[key] = c.ll.PushFront(&cacheNode{key: key, verdict: verdict})
		if c.ll.Len() > c.cap {
			tail := c.ll.Back()
			if tail != nil {
				c.ll.Remove(tail)
				delete(c.m, tail.Value.(*cacheNode).key)
			}
		}
	}
	c.mu.Unlock()
	return verdict
}
