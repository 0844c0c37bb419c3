package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute
)

// CachedSearcher wraps a Searcher with a TTL-bounded LRU of recent results.
// Identical queries within the window reuse the prior response instead of
// hitting the backend again.
type CachedSearcher struct {
	inner  Searcher
	cache  *lru.LRU[string, *Response]
	logger *slog.Logger
}

// CacheConfig bounds the result cache.
type CacheConfig struct {
	Size   int
	TTL    time.Duration
	Logger *slog.Logger
}

func NewCachedSearcher(inner Searcher, cfg CacheConfig) *CachedSearcher {
	if cfg.Size <= 0 {
		cfg.Size = defaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CachedSearcher{
		inner:  inner,
		cache:  lru.NewLRU[string, *Response](cfg.Size, nil, cfg.TTL),
		logger: cfg.Logger,
	}
}

// Search checks the cache before delegating. Backend failures are never
// cached.
func (s *CachedSearcher) Search(ctx context.Context, query string) (*Response, error) {
	key := queryKey(query)

	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("web search cache hit", "query", query)
		return cached, nil
	}

	resp, err := s.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, resp)
	return resp, nil
}

func queryKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
