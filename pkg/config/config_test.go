package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 20*time.Second, c.Aggregator.Timeout)
	assert.Equal(t, 180, c.Aggregator.KlineLimit)
	assert.Equal(t, 60, c.Aggregator.ChartBars)
	assert.Equal(t, "USDT", c.Symbols.Quote)
	assert.Equal(t, "memory", c.Session.Backend)
	assert.Equal(t, "https://api.coinlore.net/api", c.Providers.CoinLore.BaseURL)
	assert.Empty(t, c.Providers.CoinMarketCap.APIKey)
	require.NoError(t, c.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
aggregator:
  chart_bars: 30
symbols:
  overrides:
    wbtc: btcusdt
providers:
  binance:
    base_url: http://localhost:1234
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 30, c.Aggregator.ChartBars)
	assert.Equal(t, 180, c.Aggregator.KlineLimit)
	assert.Equal(t, "btcusdt", c.Symbols.Overrides["wbtc"])
	assert.Equal(t, "http://localhost:1234", c.Providers.Binance.BaseURL)
	assert.Equal(t, "https://mempool.space", c.Providers.Mempool.BaseURL)
}

func TestAPIKeysNeverComeFromYAML(t *testing.T) {
	path := writeConfig(t, `
providers:
  coinmarketcap:
    base_url: https://example.test
    api_key: from-file
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, c.Providers.CoinMarketCap.APIKey)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CMC_API_KEY":         "cmc",
		"ETHERSCAN_API_KEY":   "eth",
		"CRYPTOPANIC_API_KEY": "cp",
		"HTTP_PORT":           "7000",
		"LOG_LEVEL":           "debug",
		"SESSION_BACKEND":     "redis",
		"REDIS_HOST":          "redis.local",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"KAFKA_TOPIC":         "snaps",
	}
	c := Default()
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "cmc", c.Providers.CoinMarketCap.APIKey)
	assert.Equal(t, "eth", c.Providers.Etherscan.APIKey)
	assert.Equal(t, "cp", c.Providers.CryptoPanic.APIKey)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "redis", c.Session.Backend)
	assert.Equal(t, "redis.local", c.Session.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "snaps", c.Kafka.Topic)
}

func TestApplyEnvIgnoresBadPort(t *testing.T) {
	c := Default()
	c.ApplyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "eighty"
		}
		return ""
	})
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("ETHERSCAN_API_KEY", "secret")
	t.Setenv("HTTP_PORT", "8181")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Providers.Etherscan.APIKey)
	assert.Equal(t, 8181, c.Server.Port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"short kline limit", func(c *Config) { c.Aggregator.KlineLimit = 1 }, "kline_limit"},
		{"bad session backend", func(c *Config) { c.Session.Backend = "disk" }, "session.backend"},
		{"kafka snapshots without brokers", func(c *Config) {
			c.Snapshots.Enabled = true
			c.Snapshots.Backend = "kafka"
		}, "kafka.brokers"},
		{"unknown snapshot backend", func(c *Config) {
			c.Snapshots.Enabled = true
			c.Snapshots.Backend = "s3"
		}, "snapshots.backend"},
		{"consume without brokers", func(c *Config) { c.Snapshots.Consume = true }, "snapshots.consume"},
		{"collector without brokers", func(c *Config) { c.Logging.Collector.Enabled = true }, "logging.collector"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	c := Default()
	c.Snapshots.Enabled = true
	c.Snapshots.Backend = "clickhouse"
	assert.NoError(t, c.Validate())
}
