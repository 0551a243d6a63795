package lockout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/circuit"
)

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore keeps records in process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	rec := e.rec
	return &rec, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, r *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: *r, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// RedisStore shares records between server instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

const redisPrefix = "lockout:"

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, r *Record, ttl time.Duration) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisPrefix+key).Err()
}

// FallbackStore serves from primary and switches to fallback while the
// breaker is open. The primary is still tried on every call so the breaker
// can close again.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (*Record, error) {
	rec, err := s.primary.Get(ctx, key)
	if err != nil {
		if !s.failure(ctx, err) {
			return nil, err
		}
		return s.fallback.Get(ctx, key)
	}
	if !s.success(ctx) {
		return s.fallback.Get(ctx, key)
	}
	return rec, nil
}

func (s *FallbackStore) Put(ctx context.Context, key string, r *Record, ttl time.Duration) error {
	return s.write(ctx, func(st Store) error { return st.Put(ctx, key, r, ttl) })
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	return s.write(ctx, func(st Store) error { return st.Delete(ctx, key) })
}

func (s *FallbackStore) write(ctx context.Context, fn func(Store) error) error {
	if err := fn(s.primary); err != nil {
		if !s.failure(ctx, err) {
			return err
		}
		return fn(s.fallback)
	}
	if !s.success(ctx) {
		return fn(s.fallback)
	}
	return nil
}

func (s *FallbackStore) failure(ctx context.Context, err error) bool {
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened && s.logger != nil {
		s.logger.WarnContext(ctx, "lockout store degraded, using in-memory fallback", "breaker", s.breaker.Name(), "error", err)
	}
	return useFallback
}

func (s *FallbackStore) success(ctx context.Context) bool {
	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed && s.logger != nil {
		s.logger.InfoContext(ctx, "lockout store recovered", "breaker", s.breaker.Name())
	}
	return usePrimary
}
