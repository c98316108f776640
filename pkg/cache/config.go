package cache

import (
	"fmt"
	"time"
)

// RedisOption configures RedisCache.
type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	IOTimeout   time.Duration
	PingTimeout time.Duration
	Namespace   string
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    10,
		DialTimeout: 3 * time.Second,
		IOTimeout:   time.Second,
		PingTimeout: 5 * time.Second,
		Namespace:   "coindash",
	}
}

// WithRedisAddr sets host:port of the server.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		if host != "" && port > 0 {
			c.Addr = fmt.Sprintf("%s:%d", host, port)
		}
	}
}

func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

func WithRedisPoolSize(n int) RedisOption {
	return func(c *RedisConfig) {
		if n > 0 {
			c.PoolSize = n
		}
	}
}

// WithRedisNamespace sets the prefix put in front of every key.
func WithRedisNamespace(ns string) RedisOption {
	return func(c *RedisConfig) {
		if ns != "" {
			c.Namespace = ns
		}
	}
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	Capacity   int
	DefaultTTL time.Duration
	SweepEvery time.Duration
}

func defaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		Capacity:   1000,
		DefaultTTL: 24 * time.Hour,
		SweepEvery: 5 * time.Minute,
	}
}

// WithMemoryCapacity bounds the number of live sessions; the least recently used one is
// dropped to make room.
func WithMemoryCapacity(n int) MemoryOption {
	return func(c *MemoryConfig) {
		if n > 0 {
			c.Capacity = n
		}
	}
}

// WithMemoryDefaultTTL applies to entries stored with ttl <= 0.
func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if ttl > 0 {
			c.DefaultTTL = ttl
		}
	}
}

func WithMemorySweep(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.SweepEvery = interval
		}
	}
}
