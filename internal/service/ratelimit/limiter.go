package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per caller key. Idle keys are dropped by Sweep.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*visitor
	rps   rate.Limit
	burst int
	now   func() time.Time
}

// New creates a limiter allowing rps requests per second with the given burst per key.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*visitor),
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.m[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Sweep forgets keys not seen for idle and returns how many were removed.
func (l *Limiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.m {
		if v.lastSeen.Before(cutoff) {
			delete(l.m, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle keys every interval until stop is closed.
func (l *Limiter) Run(stop <-chan struct{}, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Sweep(idle)
		}
	}
}
