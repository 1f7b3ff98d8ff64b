// Package ratelimit throttles clients with a fixed one-minute window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// clients idle this long are forgotten by the sweeper
	idleAfter = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

type counter struct {
	start time.Time
	seen  time.Time
	count int
}

// Limiter counts requests per client key.
type Limiter struct {
	limit int
	sweep time.Duration
	now   func() time.Time

	mu       sync.Mutex
	counters map[string]*counter

	rejected int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter and starts its sweeper; call Stop.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	rl := &Limiter{
		limit:    cfg.RequestsPerMinute,
		sweep:    cfg.CleanupInterval,
		now:      time.Now,
		counters: make(map[string]*counter),
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow records a request for key. When the key is over its limit it
// returns false and how long until its window resets.
func (rl *Limiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.counters[key]
	if !ok || now.Sub(c.start) >= window {
		rl.counters[key] = &counter{start: now, seen: now, count: 1}
		return true, 0
	}
	c.count++
	c.seen = now
	if c.count <= rl.limit {
		return true, 0
	}
	atomic.AddInt64(&rl.rejected, 1)
	return false, c.start.Add(window).Sub(now)
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) forgetIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleAfter)
	removed := 0
	for key, c := range rl.counters {
		if c.seen.Before(cutoff) {
			delete(rl.counters, key)
			removed++
		}
	}
	return removed
}

// ActiveClients is the number of keys currently tracked.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.rejected),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware limits requests for which applies returns true (all requests
// when nil). Rejections carry Retry-After; onLimit writes the body, a plain
// 429 when nil.
func (rl *Limiter) Middleware(key func(*http.Request) string, applies func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies == nil || applies(r) {
				if ok, wait := rl.Allow(key(r)); !ok {
					w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
					if onLimit != nil {
						onLimit(w, r)
					} else {
						http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					}
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// WritesOnly applies limiting to state-changing methods.
func WritesOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
