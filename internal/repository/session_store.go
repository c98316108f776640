package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	"CoinDash/pkg/cache"
)

const (
	sessionKeyPrefix  = "session"
	defaultSessionTTL = 24 * time.Hour
)

// CacheSessionStore keeps selections in a cache.Service with a sliding TTL: a session
// expires ttl after it was last read or written.
type CacheSessionStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheSessionStore(c cache.Service, ttl time.Duration) *CacheSessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &CacheSessionStore{cache: c, ttl: ttl}
}

func (s *CacheSessionStore) Get(ctx context.Context, sessionID string) (models.Selection, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return models.Selection{}, err
	}

	var sel models.Selection
	if err := s.cache.Get(ctx, key, &sel); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.Selection{}, domrepo.ErrSessionNotFound
		}
		return models.Selection{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	// A failed renewal still returns the selection; the next write fixes the TTL.
	_, _ = s.cache.Touch(ctx, key, s.ttl)
	return sel, nil
}

func (s *CacheSessionStore) Save(ctx context.Context, sessionID string, sel models.Selection) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	sel.Symbol = strings.ToUpper(strings.TrimSpace(sel.Symbol))
	sel.Address = strings.TrimSpace(sel.Address)
	if err := s.cache.Set(ctx, key, sel, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, sessionID string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}

func (s *CacheSessionStore) Health(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func sessionKey(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", domrepo.ErrInvalidSessionID
	}
	return cache.GenerateKey(sessionKeyPrefix, id), nil
}

var _ domrepo.SessionStore = (*CacheSessionStore)(nil)
