// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a thread-safe, fixed-capacity least-recently-used (LRU) cache
whose entries also expire after a time-to-live (TTL).

Keys are strings. The cache evicts the least recently used entry when it exceeds capacity.
An entry's expiry is fixed when it is inserted: changing the TTL with [LRUCache.SetTTL]
only affects entries inserted afterwards.

By default an expired entry is removed as soon as a read detects it. Caches created with
[WithLazyExpiry] report expired entries as absent but leave them in place until the next
[LRUCache.Cleanup] pass.
*/
package lrucache

import (
	"container/list"
	"errors"
	"iter"
	"sync"
	"time"
)

var (
	ErrInvalidSize = errors.New("must provide a positive size")
	ErrInvalidTTL  = errors.New("must provide a positive TTL")
)

// entryOverhead approximates the bookkeeping cost of one entry in bytes:
// the list element, the map bucket slot and the entry header.
const entryOverhead = 128

// Entry is a snapshot of one cached value and its access bookkeeping.
type Entry[V any] struct {
	Key            string
	Value          V
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
	HitCount       int64
}

// Stats summarizes the cache contents.
type Stats struct {
	Size       int           `json:"size"`
	TotalHits  int64         `json:"totalHits"`
	AverageAge time.Duration `json:"averageAge"`
}

// DetailedStats extends [Stats] with a memory estimate and the fill ratio.
type DetailedStats struct {
	Stats

	MaxSize         int     `json:"maxSize"`
	MemoryUsage     int64   `json:"memoryUsage"`     // estimated bytes
	UtilizationRate float64 `json:"utilizationRate"` // size/maxSize as a percentage
}

// Option configures an [LRUCache] at construction.
type Option[V any] func(*LRUCache[V])

// WithClock replaces time.Now as the cache's time source.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *LRUCache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSizer sets the function used to estimate the memory held by a value.
func WithSizer[V any](sizer func(V) int) Option[V] {
	return func(c *LRUCache[V]) {
		c.sizer = sizer
	}
}

// WithLazyExpiry keeps expired entries in the cache until [LRUCache.Cleanup] runs.
func WithLazyExpiry[V any]() Option[V] {
	return func(c *LRUCache[V]) {
		c.lazyExpiry = true
	}
}

// LRUCache is a fixed-capacity, least-recently-used cache with per-entry expiry
// that is safe for concurrent use.
// Instances must be constructed with [New]; the zero value is not ready for use.
type LRUCache[V any] struct {
	size       int                      // Maximum capacity of the cache (number of entries)
	ttl        time.Duration            // Lifespan given to newly inserted entries
	evictList  *list.List               // Front is the most recently used entry, back the least
	items      map[string]*list.Element // Maps string keys to their corresponding linked-list elements
	lock       sync.Mutex               // Reads mutate recency and hit counts, so every access writes
	now        func() time.Time
	sizer      func(V) int
	lazyExpiry bool
}

// New creates a new cache holding at most maxSize entries, each living for ttl.
//
// It returns an error if maxSize or ttl is not positive.
func New[V any](maxSize int, ttl time.Duration, opts ...Option[V]) (*LRUCache[V], error) {
	if maxSize <= 0 {
		return nil, ErrInvalidSize
	}

	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	c := &LRUCache[V]{
		size:      maxSize,
		ttl:       ttl,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get retrieves the value for key, marks it as most recently used and counts the hit.
//
// The second result reports whether a fresh entry was found. An expired entry is
// reported as absent.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V

	ent, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := entryOf[V](ent)
	now := c.now()

	if c.expired(e, now) {
		if !c.lazyExpiry {
			c.removeElement(ent)
		}

		return zero, false
	}

	e.HitCount++
	e.LastAccessedAt = now
	c.evictList.MoveToFront(ent)

	return e.Value, true
}

// Peek retrieves the value for key without modifying the LRU order or the hit count.
func (c *LRUCache[V]) Peek(key string) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V

	ent, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := entryOf[V](ent)
	if c.expired(e, c.now()) {
		return zero, false
	}

	return e.Value, true
}

// Has reports whether key holds a fresh entry. It does not change the LRU order.
func (c *LRUCache[V]) Has(key string) bool {
	_, ok := c.Peek(key)

	return ok
}

// Set adds or replaces the value for key and marks it as most recently used.
//
// A replaced entry restarts its lifetime with the current TTL. If the cache exceeds
// capacity, the least recently used entry is evicted. Set reports whether an eviction occurred.
func (c *LRUCache[V]) Set(key string, value V) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()

	if ent, ok := c.items[key]; ok {
		e := entryOf[V](ent)
		e.Value = value
		e.CreatedAt = now
		e.LastAccessedAt = now
		e.ExpiresAt = now.Add(c.ttl)
		c.evictList.MoveToFront(ent)

		return false
	}

	c.items[key] = c.evictList.PushFront(&Entry[V]{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(c.ttl),
	})

	evicted := c.evictList.Len() > c.size
	if evicted {
		c.removeOldest()
	}

	return evicted
}

// Restore inserts a previously exported entry, keeping its timestamps and hit count.
//
// The entry's expiry is derived from its CreatedAt and the current TTL when
// ExpiresAt is zero. Restored entries are placed in LRU order by LastAccessedAt,
// so restoring a full export reproduces the original eviction order. Restore
// reports whether an eviction occurred.
func (c *LRUCache[V]) Restore(entry Entry[V]) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.CreatedAt.Add(c.ttl)
	}

	if ent, ok := c.items[entry.Key]; ok {
		c.removeElement(ent)
	}

	restored := &Entry[V]{
		Key:            entry.Key,
		Value:          entry.Value,
		CreatedAt:      entry.CreatedAt,
		LastAccessedAt: entry.LastAccessedAt,
		ExpiresAt:      entry.ExpiresAt,
		HitCount:       entry.HitCount,
	}

	// Walk from the front past every entry accessed more recently.
	mark := c.evictList.Front()
	for mark != nil && entryOf[V](mark).LastAccessedAt.After(restored.LastAccessedAt) {
		mark = mark.Next()
	}

	if mark == nil {
		c.items[restored.Key] = c.evictList.PushBack(restored)
	} else {
		c.items[restored.Key] = c.evictList.InsertBefore(restored, mark)
	}

	evicted := c.evictList.Len() > c.size
	if evicted {
		c.removeOldest()
	}

	return evicted
}

// Delete removes the entry associated with key from the cache.
//
// Delete reports whether the key was present and removed.
func (c *LRUCache[V]) Delete(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)

		return true
	}

	return false
}

// Clear removes every entry.
func (c *LRUCache[V]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.evictList.Init()
	clear(c.items)
}

// Cleanup removes all expired entries and returns how many were removed.
// The relative order of the remaining entries is left untouched.
func (c *LRUCache[V]) Cleanup() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	removed := 0

	for ent := c.evictList.Back(); ent != nil; {
		prev := ent.Prev()

		if c.expired(entryOf[V](ent), now) {
			c.removeElement(ent)
			removed++
		}

		ent = prev
	}

	return removed
}

// Keys returns a slice of all keys in the cache, from the oldest to the newest.
//
// Expired entries that have not been cleaned up yet are included.
func (c *LRUCache[V]) Keys() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]string, 0, len(c.items))

	// The back of the list is the oldest entry.
	for ent := c.evictList.Back(); ent != nil; ent = ent.Prev() {
		keys = append(keys, entryOf[V](ent).Key)
	}

	return keys
}

// Entries returns a copy of every entry, from the least to the most recently used.
func (c *LRUCache[V]) Entries() []Entry[V] {
	c.lock.Lock()
	defer c.lock.Unlock()

	entries := make([]Entry[V], 0, len(c.items))

	for ent := c.evictList.Back(); ent != nil; ent = ent.Prev() {
		entries = append(entries, *entryOf[V](ent))
	}

	return entries
}

// All returns an iterator over a snapshot of the cache taken when iteration starts.
// Mutating the cache while iterating is safe and does not affect the sequence.
func (c *LRUCache[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, e := range c.Entries() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Len returns the current number of items in the cache, expired ones included.
func (c *LRUCache[V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

// MaxSize returns the configured capacity.
func (c *LRUCache[V]) MaxSize() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.size
}

// SetMaxSize changes the capacity, evicting least recently used entries
// one at a time until the cache fits. It returns the number of evictions.
func (c *LRUCache[V]) SetMaxSize(maxSize int) (int, error) {
	if maxSize <= 0 {
		return 0, ErrInvalidSize
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.size = maxSize

	evicted := 0
	for c.evictList.Len() > c.size {
		c.removeOldest()
		evicted++
	}

	return evicted, nil
}

// TTL returns the lifespan given to newly inserted entries.
func (c *LRUCache[V]) TTL() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.ttl
}

// SetTTL changes the lifespan of entries inserted from now on.
func (c *LRUCache[V]) SetTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.ttl = ttl

	return nil
}

// Stats returns the entry count, the sum of hit counts and the mean entry age.
func (c *LRUCache[V]) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stats()
}

// DetailedStats returns [Stats] together with a memory estimate and utilization.
func (c *LRUCache[V]) DetailedStats() DetailedStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	var memory int64

	for ent := c.evictList.Front(); ent != nil; ent = ent.Next() {
		e := entryOf[V](ent)

		memory += int64(entryOverhead + len(e.Key))
		if c.sizer != nil {
			memory += int64(c.sizer(e.Value))
		}
	}

	return DetailedStats{
		Stats:           c.stats(),
		MaxSize:         c.size,
		MemoryUsage:     memory,
		UtilizationRate: float64(c.evictList.Len()) / float64(c.size) * 100,
	}
}

func (c *LRUCache[V]) stats() Stats {
	s := Stats{Size: c.evictList.Len()}
	if s.Size == 0 {
		return s
	}

	now := c.now()

	var age time.Duration

	for ent := c.evictList.Front(); ent != nil; ent = ent.Next() {
		e := entryOf[V](ent)

		s.TotalHits += e.HitCount
		age += now.Sub(e.CreatedAt)
	}

	s.AverageAge = age / time.Duration(s.Size)

	return s
}

func (c *LRUCache[V]) expired(e *Entry[V], now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// removeOldest removes the oldest item from both the linked list and the map.
func (c *LRUCache[V]) removeOldest() {
	ent := c.evictList.Back()
	if ent != nil {
		c.removeElement(ent)
	}
}

// removeElement removes a specific list element from the eviction list and deletes it from the map.
func (c *LRUCache[V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, entryOf[V](e).Key)
}

func entryOf[V any](e *list.Element) *Entry[V] {
	return e.Value.(*Entry[V]) //nolint:forcetypeassert // only *Entry[V] is ever pushed
}
