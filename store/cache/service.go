package cache

import (
	"context"
	"strings"
	"time"
)

// Service defines the byte-oriented cache interface consumed by the
// evaluation pipeline. Keys follow the "eval:{user}:{block}" convention.
type Service interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: supports a trailing wildcard (user:123:*)
	Invalidate(ctx context.Context, pattern string) error
}

type byteService struct {
	cache *Cache
}

// NewService wraps a Cache with the byte-oriented Service interface.
func NewService(c *Cache) Service {
	return &byteService{cache: c}
}

func (s *byteService) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (s *byteService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.SetWithTTL(ctx, key, value, ttl)
	return nil
}

func (s *byteService) Invalidate(ctx context.Context, pattern string) error {
	if !strings.HasSuffix(pattern, "*") {
		s.cache.Delete(ctx, pattern)
		return nil
	}
	prefix := strings.TrimSuffix(pattern, "*")
	s.cache.data.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			s.cache.Delete(ctx, key.(string))
		}
		return true
	})
	return nil
}
