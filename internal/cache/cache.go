// Package cache provides the bounded render cache keyed by normalized
// document text.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 10

// RenderCache caches rendered markup with FIFO eviction. Lookups do not
// change eviction order.
type RenderCache struct {
	entries  map[string]*Entry
	mutex    sync.Mutex
	capacity int
	// Insertion-ordered list: newest after head, oldest before tail.
	head *Entry
	tail *Entry
	// Statistics tracking (atomic so Stats never blocks on a compute)
	hits      int64
	misses    int64
	sets      int64
	evictions int64
	clears    int64
}

// Entry is a cached render result.
type Entry struct {
	Key       string
	Value     string
	CreatedAt time.Time

	prev *Entry
	next *Entry
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Clears    int64   `json:"clears"`
	HitRate   float64 `json:"hit_rate"`
}

// New creates a render cache holding at most capacity entries.
func New(capacity int) *RenderCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &RenderCache{
		entries:  make(map[string]*Entry, capacity),
		capacity: capacity,
	}

	c.head = &Entry{}
	c.tail = &Entry{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the cached value for key.
func (c *RenderCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.Value, true
}

// Set stores a value. Updating an existing key keeps its insertion position.
func (c *RenderCache) Set(key, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.set(key, value)
}

// GetOrCompute returns the cached value for key, computing and inserting it
// on a miss. compute runs under the cache lock, so a miss and its insertion
// are never interleaved with other cache operations.
func (c *RenderCache) GetOrCompute(key string, compute func() string) string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[key]; ok {
		atomic.AddInt64(&c.hits, 1)
		return entry.Value
	}
	atomic.AddInt64(&c.misses, 1)

	value := compute()
	c.set(key, value)
	return value
}

func (c *RenderCache) set(key, value string) {
	atomic.AddInt64(&c.sets, 1)

	if existing, ok := c.entries[key]; ok {
		existing.Value = value
		return
	}

	entry := &Entry{Key: key, Value: value, CreatedAt: time.Now()}
	c.entries[key] = entry
	c.addToFront(entry)

	for len(c.entries) > c.capacity && c.tail.prev != c.head {
		oldest := c.tail.prev
		c.removeFromList(oldest)
		delete(c.entries, oldest.Key)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// Clear drops every entry. Counters other than clears are kept so hit rates
// survive settings changes.
func (c *RenderCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*Entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	atomic.AddInt64(&c.clears, 1)
}

// Len returns the number of cached entries.
func (c *RenderCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// Keys returns cached keys from oldest to newest.
func (c *RenderCache) Keys() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	keys := make([]string, 0, len(c.entries))
	for e := c.tail.prev; e != c.head; e = e.prev {
		keys = append(keys, e.Key)
	}
	return keys
}

// Stats returns the current counters.
func (c *RenderCache) Stats() Stats {
	size := c.Len()
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Sets:      atomic.LoadInt64(&c.sets),
		Evictions: atomic.LoadInt64(&c.evictions),
		Clears:    atomic.LoadInt64(&c.clears),
		HitRate:   rate,
	}
}

func (c *RenderCache) addToFront(entry *Entry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *RenderCache) removeFromList(entry *Entry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}
