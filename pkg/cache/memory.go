package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key      string
	data     []byte
	expireAt time.Time
}

// MemoryCache implements Service in process. Entries are kept in recency order so the
// least recently used one is dropped when Capacity is reached.
type MemoryCache struct {
	mu         sync.Mutex
	index      map[string]*list.Element
	order      *list.List
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := defaultMemoryConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		index:      make(map[string]*list.Element),
		order:      list.New(),
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go mc.sweep(cfg.SweepEvery)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	expireAt := mc.now().Add(ttl)
	if el, ok := mc.index[key]; ok {
		e := el.Value.(*entry)
		e.data, e.expireAt = data, expireAt
		mc.order.MoveToFront(el)
		return nil
	}
	if mc.order.Len() >= mc.capacity {
		mc.removeElement(mc.order.Back())
	}
	mc.index[key] = mc.order.PushFront(&entry{key: key, data: data, expireAt: expireAt})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el := mc.live(key)
	if el == nil {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := el.Value.(*entry).data
	mc.mu.Unlock()

	return decode(data, dest)
}

func (mc *MemoryCache) Touch(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el := mc.live(key)
	if el == nil {
		return false, nil
	}
	el.Value.(*entry).expireAt = mc.now().Add(ttl)
	mc.order.MoveToFront(el)
	return true, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if el, ok := mc.index[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Ping(context.Context) error {
	select {
	case <-mc.stop:
		return ErrClosed
	default:
		return nil
	}
}

// Len reports the number of stored entries, including expired ones not swept yet.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}

// live returns the element for key, dropping it when expired. Caller holds mc.mu.
func (mc *MemoryCache) live(key string) *list.Element {
	el, ok := mc.index[key]
	if !ok {
		return nil
	}
	if mc.now().After(el.Value.(*entry).expireAt) {
		mc.removeElement(el)
		return nil
	}
	return el
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.index, el.Value.(*entry).key)
}

func (mc *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for el := mc.order.Back(); el != nil; {
				prev := el.Prev()
				if now.After(el.Value.(*entry).expireAt) {
					mc.removeElement(el)
				}
				el = prev
			}
			mc.mu.Unlock()
		}
	}
}
