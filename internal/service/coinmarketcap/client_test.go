package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"CoinDash/internal/service/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDominanceSendsKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/global-metrics/quotes/latest", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		_, _ = w.Write([]byte(`{"data":{"btc_dominance":54.321},"status":{"error_code":0}}`))
	}))
	defer srv.Close()

	d, err := New(provider.Config{BaseURL: srv.URL, APIKey: "test-key"}).Dominance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 54.321, d.BTCPercent, 1e-9)
}

func TestDominanceNullIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"btc_dominance":null}}`))
	}))
	defer srv.Close()

	_, err := New(provider.Config{BaseURL: srv.URL, APIKey: "k"}).Dominance(context.Background())
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestMissingKeySkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(provider.Config{BaseURL: srv.URL})
	_, err := c.Dominance(context.Background())
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
	_, err = c.Headlines(context.Background(), "BTC", 5)
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestHeadlinesLimitAndDefaultTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETH", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"data":[{"title":"a"},{"title":""},{"title":"c"},{"title":"d"}]}`))
	}))
	defer srv.Close()

	titles, err := New(provider.Config{BaseURL: srv.URL, APIKey: "k"}).Headlines(context.Background(), "eth", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "No Title", "c"}, titles)
}
