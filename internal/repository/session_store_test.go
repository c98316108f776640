package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	"CoinDash/pkg/cache"
)

func TestCacheSessionStoreRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, "abc", models.Selection{Symbol: "ETH", Address: "0xabc"}))
	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, models.Selection{Symbol: "ETH", Address: "0xabc"}, got)

	require.NoError(t, store.Save(ctx, "abc", models.Selection{Symbol: "BTC"}))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "BTC", got.Symbol)
	assert.Empty(t, got.Address)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)
}

func TestCacheSessionStoreSessionsAreIsolated(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", models.Selection{Symbol: "ETH"}))
	require.NoError(t, store.Save(ctx, "b", models.Selection{Symbol: "XRP"}))

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	b, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "ETH", a.Symbol)
	assert.Equal(t, "XRP", b.Symbol)
}

func TestCacheSessionStoreExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", models.Selection{Symbol: "ETH"}))
	time.Sleep(40 * time.Millisecond)
	_, err := store.Get(ctx, "s")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)
}

type touchRecorder struct {
	cache.Service
	touched []string
	pingErr error
}

func (r *touchRecorder) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	r.touched = append(r.touched, key)
	return r.Service.Touch(ctx, key, ttl)
}

func (r *touchRecorder) Ping(context.Context) error { return r.pingErr }

func TestCacheSessionStoreReadRenewsSession(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	rec := &touchRecorder{Service: mc}
	store := NewCacheSessionStore(rec, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", models.Selection{Symbol: " eth "}))
	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "ETH", got.Symbol)
	assert.Equal(t, []string{"session:s"}, rec.touched)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)
	assert.Len(t, rec.touched, 1)
}

func TestCacheSessionStoreRejectsBlankID(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSessionStore(mc, time.Minute)
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "  ", models.Selection{Symbol: "BTC"}), domrepo.ErrInvalidSessionID)
	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, domrepo.ErrInvalidSessionID)
	assert.ErrorIs(t, store.Delete(ctx, ""), domrepo.ErrInvalidSessionID)
}

func TestCacheSessionStoreHealth(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	down := errors.New("connection refused")
	store := NewCacheSessionStore(&touchRecorder{Service: mc, pingErr: down}, time.Minute)
	assert.ErrorIs(t, store.Health(context.Background()), down)

	assert.NoError(t, NewCacheSessionStore(mc, time.Minute).Health(context.Background()))
}
