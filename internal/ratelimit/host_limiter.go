// Package ratelimit spaces outbound requests per remote host so a run over
// many feeds on the same aggregator does not hammer a single origin.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter hands out one token-bucket limiter per host. Limiters are
// created lazily on first use and live for the process lifetime.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

// NewHostLimiter returns a limiter that allows one request per interval per
// host, with a burst of one.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

func (h *HostLimiter) getLimiter(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if limiter, ok := h.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(h.interval), 1)
	h.limiters[host] = limiter
	return limiter
}

// Wait blocks until the host's limiter grants a token or the context is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if err := h.getLimiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for host %s: %w", host, err)
	}
	return nil
}
