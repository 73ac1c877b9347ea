package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryStateRepository is the in-process fallback when redis is down.
// Rate limiting uses token buckets; cache entries carry their own expiry.
type MemoryStateRepository struct {
	limiters sync.Map
	cache    sync.Map
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	val, ok := r.limiters.Load(key)
	if !ok {
		limiter := rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		val, _ = r.limiters.LoadOrStore(key, limiter)
	}
	return val.(*rate.Limiter).Allow(), nil
}

func (r *MemoryStateRepository) GetCached(ctx context.Context, key string) ([]byte, error) {
	val, ok := r.cache.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.cache.Delete(key)
		return nil, nil
	}
	return entry.value, nil
}

func (r *MemoryStateRepository) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.cache.Store(key, cacheEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (r *MemoryStateRepository) Invalidate(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}
