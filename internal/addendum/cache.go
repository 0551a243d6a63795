package addendum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/addendum/metrics"
)

// Cache stores raw addendum pages by URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, page []byte, ttl time.Duration) error
}

const pageKeyPrefix = "addendum:page:"

func pageKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return pageKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache is the shared cache used when REDIS_URL is configured.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	page, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return page, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, page []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, page, ttl).Err()
}

type memoryEntry struct {
	page      []byte
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.page, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, page []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{page: page, expiresAt: c.now().Add(ttl)}
	return nil
}

// CachingFetcher serves pages from Cache and falls back to next on a miss.
// Cache failures are logged and bypassed.
type CachingFetcher struct {
	next    PageFetcher
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCachingFetcher(next PageFetcher, cache Cache, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *CachingFetcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachingFetcher{next: next, cache: cache, ttl: ttl, logger: logger, metrics: m}
}

func (f *CachingFetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	key := pageKey(pageURL)
	page, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.warn(ctx, "addendum cache read failed", pageURL, err)
	}
	if ok {
		if f.metrics != nil {
			f.metrics.IncrementCacheHit()
		}
		return page, nil
	}
	if f.metrics != nil {
		f.metrics.IncrementCacheMiss()
	}

	page, err = f.next.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, page, f.ttl); err != nil {
		f.warn(ctx, "addendum cache write failed", pageURL, err)
	}
	return page, nil
}

func (f *CachingFetcher) warn(ctx context.Context, msg, pageURL string, err error) {
	if f.logger != nil {
		f.logger.WarnContext(ctx, msg, "url", pageURL, "error", err)
	}
}
