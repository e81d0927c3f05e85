// Package memcache implements a bounded, cost-and-count LRU cache over
// decoded images held in RAM.
package memcache

import (
	"container/list"
	"sync"

	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
	"github.com/corymoss/imagecache/stats"
)

const (
	// DefaultMaxCost is the default memory budget: 50 MiB.
	DefaultMaxCost int64 = 50 << 20
	// DefaultMaxCount is the default entry-count ceiling.
	DefaultMaxCount = 100
)

// Record pairs a decoded image with its accounted memory cost.
type Record struct {
	Image *imgcodec.Image
	Cost  int64
}

type entry struct {
	key    fingerprint.Fingerprint
	record Record
}

// Cache is a thread-safe, strictly-LRU-by-last-access bounded cache over
// decoded images. Eviction order is by last-access time; a Get always
// refreshes recency.
type Cache struct {
	mu       sync.Mutex
	ll       *list.List // front = most recently used
	index    map[fingerprint.Fingerprint]*list.Element
	cost     int64
	maxCost  int64
	maxCount int

	stats *stats.Recorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxCost sets the memory budget in bytes.
func WithMaxCost(n int64) Option {
	return func(c *Cache) { c.maxCost = n }
}

// WithMaxCount sets the maximum number of entries.
func WithMaxCount(n int) Option {
	return func(c *Cache) { c.maxCount = n }
}

// WithStats attaches a stats.Recorder that Get calls report hits/misses to.
func WithStats(r *stats.Recorder) Option {
	return func(c *Cache) { c.stats = r }
}

// New creates an empty Cache with default limits, overridable via Option.
func New(opts ...Option) *Cache {
	c := &Cache{
		ll:       list.New(),
		index:    make(map[fingerprint.Fingerprint]*list.Element),
		maxCost:  DefaultMaxCost,
		maxCount: DefaultMaxCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves the image for fp, refreshing its LRU recency on a hit and
// recording the outcome in Stats.
func (c *Cache) Get(fp fingerprint.Fingerprint) (*imgcodec.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[fp]
	if !ok {
		if c.stats != nil {
			c.stats.RecordMiss()
		}
		return nil, false
	}
	c.ll.MoveToFront(el)
	if c.stats != nil {
		c.stats.RecordHit()
	}
	return el.Value.(*entry).record.Image, true
}

// Exists reports whether fp is cached without affecting Stats or recency.
func (c *Cache) Exists(fp fingerprint.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[fp]
	return ok
}

// Put inserts or replaces the entry for fp, evicting least-recently-used
// entries until both the cost and count budgets are satisfied.
//
// An image whose own cost exceeds maxCost evicts everything else and is
// still stored: capacity is enforced by eviction, not by refusing inserts,
// so a single oversized entry is a documented best-effort exception to the
// budget rather than a rejected Put.
func (c *Cache) Put(fp fingerprint.Fingerprint, img *imgcodec.Image) {
	cost := img.ByteCost()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[fp]; ok {
		old := el.Value.(*entry)
		c.cost -= old.record.Cost
		old.record = Record{Image: img, Cost: cost}
		c.ll.MoveToFront(el)
		c.cost += cost
	} else {
		el := c.ll.PushFront(&entry{key: fp, record: Record{Image: img, Cost: cost}})
		c.index[fp] = el
		c.cost += cost
	}

	c.evictLocked()
}

// Remove deletes the entry for fp, if present.
func (c *Cache) Remove(fp fingerprint.Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeElementLocked(fp)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[fingerprint.Fingerprint]*list.Element)
	c.cost = 0
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// TotalCost returns the current accounted cost sum.
func (c *Cache) TotalCost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

func (c *Cache) removeElementLocked(fp fingerprint.Fingerprint) {
	el, ok := c.index[fp]
	if !ok {
		return
	}
	c.ll.Remove(el)
	delete(c.index, fp)
	c.cost -= el.Value.(*entry).record.Cost
}

func (c *Cache) evictLocked() {
	for (c.maxCost > 0 && c.cost > c.maxCost) || (c.maxCount > 0 && c.ll.Len() > c.maxCount) {
		if c.ll.Len() <= 1 {
			// Sole remaining entry: evicting it too would leave the cache
			// empty instead of best-effort over budget. Keep it.
			return
		}
		back := c.ll.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry)
		c.ll.Remove(back)
		delete(c.index, e.key)
		c.cost -= e.record.Cost
	}
}
