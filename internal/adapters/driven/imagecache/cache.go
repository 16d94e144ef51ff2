package imagecache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ImageCache = (*Cache)(nil)

const (
	DefaultMaxEntries = 500
	DefaultTTL        = time.Hour
)

// Config configures the image cache.
type Config struct {
	MaxEntries int           // default: DefaultMaxEntries
	TTL        time.Duration // default: DefaultTTL
}

type entry struct {
	result   domain.ImageResult
	storedAt time.Time
}

// Cache is an in-process LRU of validated images with a per-entry TTL.
// Expired entries are dropped on read and swept before the LRU would evict
// a live entry to make room.
type Cache struct {
	lru        *lru.Cache[string, entry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	// serialises Set so the sweep and the insert see the same length
	mu sync.Mutex
}

// New creates an image cache. Non-positive values fall back to defaults.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	// lru.New only errors on a non-positive size, which is guarded above.
	c, _ := lru.New[string, entry](cfg.MaxEntries)
	return &Cache{
		lru:        c,
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
}

// Get returns a copy of the cached image when present and fresh.
func (c *Cache) Get(key string) (*domain.ImageResult, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.lru.Remove(key)
		return nil, false
	}
	result := e.result
	return &result, true
}

// Set stores an image, sweeping expired entries first when the cache is full.
func (c *Cache) Set(key string, result *domain.ImageResult) {
	if result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lru.Contains(key) && c.lru.Len() >= c.maxEntries {
		c.prune()
	}
	c.lru.Add(key, entry{result: *result, storedAt: c.now()})
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() int {
	n := c.lru.Len()
	c.lru.Purge()
	return n
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prune()
}

func (c *Cache) prune() int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && c.expired(e) {
			if c.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.storedAt) >= c.ttl
}
