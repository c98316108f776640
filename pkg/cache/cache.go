package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	ErrEmptyKey  = errors.New("cache: empty key")
)

// Service is the key/value contract behind the session store. Values are stored JSON
// encoded so every backend round-trips the same way.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	// Touch pushes the expiry of a live key to now+ttl. It reports false for a missing key.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// GenerateKey joins a namespace and an id into a cache key.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, strings.TrimSpace(id))
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
