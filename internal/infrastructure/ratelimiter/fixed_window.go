package ratelimiter

import (
	"net/http"
	"sync"
	"time"
)

// FixedWindowRateLimiter counts requests per source within fixed time
// windows. Counters for expired windows are swept periodically.
type FixedWindowRateLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	counts map[string]*windowCount

	cleanupTick *time.Ticker
	done        chan struct{}
}

type windowCount struct {
	count   int
	resetAt time.Time
}

func NewFixedWindowRateLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		limit:       limit,
		window:      window,
		counts:      make(map[string]*windowCount),
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *FixedWindowRateLimiter) Allow(sourceKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc := rl.current(sourceKey)
	if wc.count >= rl.limit {
		return false
	}
	wc.count++
	return true
}

func (rl *FixedWindowRateLimiter) Remaining(sourceKey string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc := rl.current(sourceKey)
	remaining := rl.limit - wc.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *FixedWindowRateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(defaultSourceHeaderKey); key != "" {
		return key
	}
	return r.RemoteAddr
}

func (rl *FixedWindowRateLimiter) GetMaxBurst() int {
	return rl.limit
}

// current returns the live window counter for the key, starting a new
// window if the previous one expired. Caller holds the lock.
func (rl *FixedWindowRateLimiter) current(sourceKey string) *windowCount {
	now := time.Now()

	wc, ok := rl.counts[sourceKey]
	if !ok || now.After(wc.resetAt) {
		wc = &windowCount{resetAt: now.Truncate(rl.window).Add(rl.window)}
		rl.counts[sourceKey] = wc
	}
	return wc
}

func (rl *FixedWindowRateLimiter) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, wc := range rl.counts {
		if now.After(wc.resetAt) {
			delete(rl.counts, key)
		}
	}
}

func (rl *FixedWindowRateLimiter) Close() {
	close(rl.done)
	rl.cleanupTick.Stop()
}
