package repository

import (
	"context"
	"sync/atomic"
	"time"

	"garage/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverStateRepository prefers the primary and switches to the fallback
// on error, retrying the primary after a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// shouldTryPrimary reports whether the primary is believed healthy or due
// for a recovery probe.
func (r *FailoverStateRepository) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > time.Minute {
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.shouldTryPrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverStateRepository) GetCached(ctx context.Context, key string) ([]byte, error) {
	if r.shouldTryPrimary() {
		val, err := r.primary.GetCached(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return val, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetCached(ctx, key)
}

func (r *FailoverStateRepository) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.shouldTryPrimary() {
		err := r.primary.SetCached(ctx, key, value, ttl)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetCached(ctx, key, value, ttl)
}

func (r *FailoverStateRepository) Invalidate(ctx context.Context, key string) error {
	if r.shouldTryPrimary() {
		err := r.primary.Invalidate(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Invalidate(ctx, key)
}
