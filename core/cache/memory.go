package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gobwas/glob"

	"github.com/adalundhe/glossforge/core/versions"
)

const (
	defaultNumCounters = 1e6
	defaultMaxCost     = 256 << 20 // 256MB of cached content
	defaultBufferItems = 64
)

// MemoryConfig configures the in-process cache.
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64

	// TTL of zero means entries never expire; the default relies on
	// explicit invalidation when prompts change.
	TTL time.Duration
}

// MemoryCache is the in-process ContentCache used by tests and
// single-shot CLI runs. Ristretto cannot enumerate its keys, so a side
// index of hash -> logical path supports pattern invalidation.
type MemoryCache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu      sync.Mutex
	logical map[string]string
}

// NewMemoryCache creates a MemoryCache.
func NewMemoryCache(config MemoryConfig) (*MemoryCache, error) {
	if config.NumCounters <= 0 {
		config.NumCounters = defaultNumCounters
	}
	if config.MaxCost <= 0 {
		config.MaxCost = defaultMaxCost
	}
	if config.BufferItems <= 0 {
		config.BufferItems = defaultBufferItems
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryCache{
		cache:   cache,
		ttl:     config.TTL,
		logical: make(map[string]string),
	}, nil
}

func (c *MemoryCache) Get(ctx context.Context, key Key) (*versions.ContentVersion, bool) {
	value, found := c.cache.Get(key.Hash())
	if !found {
		return nil, false
	}

	v, ok := value.(*versions.ContentVersion)
	if !ok {
		return nil, false
	}

	clone := *v
	return &clone, true
}

func (c *MemoryCache) Put(ctx context.Context, key Key, v *versions.ContentVersion) error {
	if v == nil {
		return nil
	}

	clone := *v
	cost := int64(len(v.Content)) + 256
	hash := key.Hash()

	if c.ttl > 0 {
		c.cache.SetWithTTL(hash, &clone, cost, c.ttl)
	} else {
		c.cache.Set(hash, &clone, cost)
	}

	c.mu.Lock()
	c.logical[hash] = key.Logical()
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	// No separator: `introduction_*` matches every term/model/stage under
	// those columns, which is what administrative busting wants.
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for hash, logical := range c.logical {
		if matcher.Match(logical) {
			c.cache.Del(hash)
			delete(c.logical, hash)
			count++
		}
	}
	return count, nil
}

// Wait flushes pending async writes. Tests call this before asserting hits.
func (c *MemoryCache) Wait() {
	c.cache.Wait()
}

func (c *MemoryCache) Close() error {
	c.cache.Close()
	return nil
}
