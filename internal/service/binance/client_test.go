package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"CoinDash/internal/service/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rows deliberately out of order with one duplicate open time
const klinesBody = `[
 [1700086400000,"101.0","110.0","100.0","108.5","12.5",1700172799999,"0",10,"0","0","0"],
 [1700000000000,"100.0","102.0","99.0","101.0","10.0",1700086399999,"0",10,"0","0","0"],
 [1700086400000,"999","999","999","999","999",1700172799999,"0",10,"0","0","0"],
 [1700172800000,"108.5","112.0","107.0","111.0","9.0",1700259199999,"0",10,"0","0","0"]
]`

func TestKlinesStrictlyAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "180", q.Get("limit"))
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	bars, err := New(provider.Config{BaseURL: srv.URL}).Klines(context.Background(), "BTCUSDT", "1d", 180)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].OpenTime.After(bars[i-1].OpenTime), "bar %d not after bar %d", i, i-1)
	}
	assert.Equal(t, int64(1700000000), bars[0].OpenTime.Unix())
	assert.Equal(t, "108.5", bars[1].Close.String())
	assert.Equal(t, "111", bars[2].Close.String())
}

func TestKlinesErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := New(provider.Config{BaseURL: srv.URL}).Klines(context.Background(), "NOPEUSDT", "1d", 10)
	assert.ErrorContains(t, err, "Invalid symbol.")
}

func TestKlinesBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := New(provider.Config{BaseURL: srv.URL}).Klines(context.Background(), "NOPEUSDT", "1d", 10)
	assert.ErrorContains(t, err, "binance klines")
}

func TestKlinesEmptySeries(t *testing.T) {
	bars, err := parseKlines([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestKlinesShortRow(t *testing.T) {
	_, err := parseKlines([]byte(`[[1700000000000,"1","2"]]`))
	assert.Error(t, err)
}
