package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"coindash.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Providers struct {
		Timeout       time.Duration `yaml:"timeout" default:"15s"`
		NewsLimit     int           `yaml:"news_limit" default:"5"`
		CoinLore      Endpoint      `yaml:"coinlore"`
		CoinMarketCap Endpoint      `yaml:"coinmarketcap"`
		Binance       Endpoint      `yaml:"binance"`
		Mempool       Endpoint      `yaml:"mempool"`
		Etherscan     Endpoint      `yaml:"etherscan"`
		CryptoPanic   Endpoint      `yaml:"cryptopanic"`
	} `yaml:"providers"`
	Symbols struct {
		Quote     string            `yaml:"quote" default:"USDT"`
		Overrides map[string]string `yaml:"overrides"`
	} `yaml:"symbols"`
	Aggregator struct {
		Timeout       time.Duration `yaml:"timeout" default:"20s"`
		TickerLimit   int           `yaml:"ticker_limit" default:"100"`
		TopLimit      int           `yaml:"top_limit" default:"10"`
		KlineInterval string        `yaml:"kline_interval" default:"1d"`
		KlineLimit    int           `yaml:"kline_limit" default:"180"`
		ChartBars     int           `yaml:"chart_bars" default:"60"`
	} `yaml:"aggregator"`
	Session struct {
		Backend   string        `yaml:"backend" default:"memory"`
		TTL       time.Duration `yaml:"ttl" default:"24h"`
		MaxSize   int           `yaml:"max_size" default:"10000"`
		Host      string        `yaml:"host" default:"localhost"`
		Port      int           `yaml:"port" default:"6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		PoolSize  int           `yaml:"pool_size" default:"10"`
		Namespace string        `yaml:"namespace" default:"coindash"`
	} `yaml:"session"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"2"`
		Burst   int     `yaml:"burst" default:"5"`
	} `yaml:"ratelimit"`
	Snapshots struct {
		Enabled bool   `yaml:"enabled"`
		Backend string `yaml:"backend" default:"kafka"`
		Consume bool   `yaml:"consume"`
	} `yaml:"snapshots"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"coindash.snapshots"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
		GroupID      string        `yaml:"group_id" default:"coindash-snapshots"`
		Workers      int           `yaml:"workers" default:"2"`
		RetryMax     int           `yaml:"retry_max" default:"3"`
		BackoffMin   time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax   time.Duration `yaml:"backoff_max" default:"2s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"coindash"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

// Endpoint is one upstream data provider.
type Endpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

// Default returns a config populated only from struct defaults and well-known endpoints.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.applyEndpointDefaults()
	return &c
}

// Load reads and parses a YAML configuration file. A missing file is not an error:
// the service runs on defaults plus environment.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEndpointDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
// Variables from a .env file in the working directory are loaded first; variables
// already present in the process environment win.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides settings from an environment lookup. API keys are only ever read
// from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("CMC_API_KEY"); v != "" {
		c.Providers.CoinMarketCap.APIKey = v
	}
	if v := getenv("ETHERSCAN_API_KEY"); v != "" {
		c.Providers.Etherscan.APIKey = v
	}
	if v := getenv("CRYPTOPANIC_API_KEY"); v != "" {
		c.Providers.CryptoPanic.APIKey = v
	}
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Session.Host = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Session.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

func (c *Config) applyEndpointDefaults() {
	setDefault(&c.Providers.CoinLore.BaseURL, "https://api.coinlore.net/api")
	setDefault(&c.Providers.CoinMarketCap.BaseURL, "https://pro-api.coinmarketcap.com")
	setDefault(&c.Providers.Binance.BaseURL, "https://api.binance.com")
	setDefault(&c.Providers.Mempool.BaseURL, "https://mempool.space")
	setDefault(&c.Providers.Etherscan.BaseURL, "https://api.etherscan.io")
	setDefault(&c.Providers.CryptoPanic.BaseURL, "https://cryptopanic.com")
}

func setDefault(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Aggregator.KlineLimit < 2 {
		return fmt.Errorf("aggregator.kline_limit must be >= 2, got %d", c.Aggregator.KlineLimit)
	}
	if c.Aggregator.TopLimit <= 0 || c.Aggregator.TickerLimit <= 0 {
		return fmt.Errorf("aggregator ticker and top limits must be positive")
	}
	if c.Providers.NewsLimit <= 0 {
		return fmt.Errorf("providers.news_limit must be positive")
	}
	switch c.Session.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("session.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Session.Backend)
	}
	if c.Snapshots.Enabled {
		switch c.Snapshots.Backend {
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers cannot be empty when snapshots go to kafka")
			}
		case "clickhouse":
			if c.ClickHouse.Host == "" {
				return fmt.Errorf("clickhouse.host is required when snapshots go to clickhouse")
			}
		default:
			return fmt.Errorf("snapshots.backend must be 'kafka' or 'clickhouse', got '%s'", c.Snapshots.Backend)
		}
	}
	if c.Snapshots.Consume && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("snapshots.consume requires kafka.brokers")
	}
	if c.Logging.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logging.collector requires kafka.brokers")
	}
	return nil
}
