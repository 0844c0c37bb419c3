package embedding

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 1e6
	defaultMaxCost     = 1e8 // 100MB of vectors
	defaultBufferItems = 64
	bytesPerDim        = 4
)

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64

	// TTL bounds entry lifetime; zero means entries live until evicted by
	// the size bound.
	TTL time.Duration
}

// Cache memoizes text-to-vector computations. Memoization is best-effort:
// ristretto admission may reject a write under size pressure, so a repeated
// text can re-invoke the model in the worst case, but never returns a stale
// or wrong vector. Callers that need a write visible before their next read
// call Wait (CachedEmbedder does this after every store).
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewCache creates a Cache with the given configuration. A nil config uses
// defaults.
func NewCache(config *CacheConfig) (*Cache, error) {
	cfg := applyCacheDefaults(config)

	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{cache: inner, ttl: cfg.TTL}, nil
}

func applyCacheDefaults(config *CacheConfig) CacheConfig {
	cfg := CacheConfig{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	}
	if config == nil {
		return cfg
	}
	if config.NumCounters > 0 {
		cfg.NumCounters = config.NumCounters
	}
	if config.MaxCost > 0 {
		cfg.MaxCost = config.MaxCost
	}
	if config.BufferItems > 0 {
		cfg.BufferItems = config.BufferItems
	}
	cfg.TTL = config.TTL
	return cfg
}

// Get returns the cached vector for a key.
func (c *Cache) Get(key string) ([]float32, bool) {
	value, found := c.cache.Get(key)
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	vec, ok := value.([]float32)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return vec, true
}

// Set stores a vector under a key. Cost is the vector's byte size.
func (c *Cache) Set(key string, vec []float32) bool {
	cost := int64(len(vec) * bytesPerDim)
	if c.ttl > 0 {
		return c.cache.SetWithTTL(key, vec, cost, c.ttl)
	}
	return c.cache.Set(key, vec, cost)
}

// Wait blocks until buffered writes are applied. Used by tests and by the
// ingest path before a read-heavy phase.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases cache resources. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cache.Close()
}
