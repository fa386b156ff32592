// Package memcache is an in-process CacheStore for single-instance
// deployments and local runs without Redis.
package memcache

import (
	"context"
	"time"

	"cryptoprice-service/internal/application"

	cache "github.com/patrickmn/go-cache"
)

const cleanupInterval = time.Minute

var _ application.CacheStore = (*Store)(nil)

type Store struct {
	cache *cache.Cache
}

func New() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.cache.Set(key, cp, ttl)
	return nil
}
