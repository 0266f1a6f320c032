package utilities

import (
	"sync"

	"github.com/antonio-alexander/go-employees/internal/data"
)

// Counter tracks cache hits and misses per key, keys are produced by
// data.CounterKeyEmployee and data.CounterKeyEmployees
type Counter interface {
	Read(key string) (hitCount, missCount int)
	ReadAll() *data.CacheCounters
	IncrementHit(key string) (hitCount int)
	IncrementMiss(key string) (missCount int)
	Reset()
}

type counters struct {
	sync.RWMutex
	hits   map[string]int
	misses map[string]int
}

func NewCounter() Counter {
	c := &counters{}
	c.Reset()
	return c
}

func copyCounts(counts map[string]int) map[string]int {
	c := make(map[string]int, len(counts))
	for key, count := range counts {
		c[key] = count
	}
	return c
}

func (c *counters) increment(key string, hit bool) int {
	c.Lock()
	defer c.Unlock()

	counts := c.misses
	if hit {
		counts = c.hits
	}
	counts[key]++
	return counts[key]
}

func (c *counters) Read(key string) (int, int) {
	c.RLock()
	defer c.RUnlock()

	return c.hits[key], c.misses[key]
}

func (c *counters) ReadAll() *data.CacheCounters {
	c.RLock()
	defer c.RUnlock()

	return &data.CacheCounters{
		CounterHits:   copyCounts(c.hits),
		CounterMisses: copyCounts(c.misses),
	}
}

func (c *counters) IncrementHit(key string) int {
	return c.increment(key, true)
}

func (c *counters) IncrementMiss(key string) int {
	return c.increment(key, false)
}

func (c *counters) Reset() {
	c.Lock()
	defer c.Unlock()

	c.hits, c.misses = make(map[string]int), make(map[string]int)
}
