// Package cache provides a content-addressed cache for work item breakdowns.
// Keys are hashes of the full item content, not just the title, so two items
// that share a name but differ in scope never collide. Entries expire on TTL
// and the cache evicts oldest-first when it exceeds its size cap.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hivelab/hive/internal/task"
)

// Default cache bounds.
const (
	defaultTTL        = 30 * time.Minute
	defaultMaxEntries = 100
)

// Template describes one microtask of a cached breakdown. Templates carry
// no IDs or status; they are instantiated per item on each cache hit.
type Template struct {
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	ParallelSafe     bool   `json:"parallel_safe"`
}

// Entry is a cached breakdown keyed by content hash.
type Entry struct {
	Key       string        `json:"key"`
	Breakdown []Template    `json:"breakdown"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry has outlived its TTL at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the lifetime of cached entries.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithMaxEntries sets the size cap. When exceeded, oldest entries are
// evicted first.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// Cache is a TTL-bounded, size-capped breakdown cache.
// It is safe for concurrent use and tracks hit-rate statistics.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ttl        time.Duration
	maxEntries int

	hits   uint64
	misses uint64

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Cache with the given options. Unset options use defaults.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*Entry),
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key computes the content hash for a work item. The hash covers the full
// item content (title, description, duration, capabilities), so a partial
// match on title alone never reuses another item's breakdown.
func Key(item *task.WorkItem) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s",
		item.Title,
		item.Description,
		item.EstimatedDuration,
		strings.Join(item.RequiredCapabilities, ","),
	)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached breakdown for the key, or nil if absent or expired.
// Expired entries are removed on access.
func (c *Cache) Get(key string) []Template {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if entry.Expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil
	}

	c.hits++
	// Return a copy so callers cannot mutate the cached breakdown.
	cp := make([]Template, len(entry.Breakdown))
	copy(cp, entry.Breakdown)
	return cp
}

// Put stores a breakdown under the key, evicting oldest entries if the
// cache exceeds its size cap.
func (c *Cache) Put(key string, breakdown []Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := make([]Template, len(breakdown))
	copy(cp, breakdown)

	c.entries[key] = &Entry{
		Key:       key,
		Breakdown: cp,
		CreatedAt: c.now(),
		TTL:       c.ttl,
	}

	c.evictLocked()
}

// Invalidate removes the entry for the key, if present. Called when the
// parent item completes so a stale breakdown is never reused.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// evictLocked removes expired entries, then the oldest entries until the
// cache fits its size cap. Caller must hold c.mu.
func (c *Cache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].CreatedAt.Before(c.entries[keys[j]].CreatedAt)
	})

	for _, key := range keys[:len(c.entries)-c.maxEntries] {
		delete(c.entries, key)
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// HitRate returns the fraction of lookups served from the cache, or 0
// before any lookup has happened.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Stats returns the raw hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
