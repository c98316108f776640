package cache

import (
	"context"
	"time"
)

// LayeredCache puts a short-lived MemoryCache in front of Redis. Redis stays the source
// of truth, so a local copy never outlives localTTL and writes always go through.
type LayeredCache struct {
	local    *MemoryCache
	remote   *RedisCache
	localTTL time.Duration
}

func NewLayeredCache(remote *RedisCache, localTTL time.Duration, opts ...MemoryOption) *LayeredCache {
	if localTTL <= 0 {
		localTTL = 30 * time.Second
	}
	return &LayeredCache{
		local:    NewMemoryCache(opts...),
		remote:   remote,
		localTTL: localTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, ttl); err != nil {
		_ = lc.local.Delete(ctx, key)
		return err
	}
	_ = lc.local.Set(ctx, key, value, lc.clamp(ttl))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	if err := lc.local.Get(ctx, key, &raw); err == nil {
		return decode(raw, dest)
	}
	if err := lc.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, raw, lc.localTTL)
	return decode(raw, dest)
}

func (lc *LayeredCache) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := lc.remote.Touch(ctx, key, ttl)
	if err != nil || !ok {
		_ = lc.local.Delete(ctx, key)
		return ok, err
	}
	_, _ = lc.local.Touch(ctx, key, lc.clamp(ttl))
	return true, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Ping(ctx context.Context) error {
	return lc.remote.Ping(ctx)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}

func (lc *LayeredCache) clamp(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < lc.localTTL {
		return ttl
	}
	return lc.localTTL
}
