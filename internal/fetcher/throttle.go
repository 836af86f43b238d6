package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/karlseb/ttpharvest/internal/metrics"
)

// DomainLimiter hands out fetch tokens per domain. Each domain gets its own
// token bucket, created lazily on first use.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewDomainLimiter builds a limiter allowing perSecond requests to each
// domain. A non-positive perSecond disables throttling entirely.
func NewDomainLimiter(perSecond int) *DomainLimiter {
	r := rate.Limit(perSecond)
	burst := perSecond
	if perSecond <= 0 {
		r = rate.Inf
		burst = 1
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until the domain of rawURL has a token available, or the
// context is cancelled.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	domain := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}

	l.mu.Lock()
	limiter, ok := l.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[domain] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveThrottleDelay(domain, waited)
	}
	return nil
}

// ThrottlingClient wraps a Client so every fetch first takes a token from
// the per-domain limiter. It sits below the retrying wrapper, so retried
// attempts are paced like any other request.
type ThrottlingClient struct {
	inner   Client
	limiter *DomainLimiter
}

// NewThrottlingClient builds the throttling wrapper.
func NewThrottlingClient(inner Client, limiter *DomainLimiter) *ThrottlingClient {
	return &ThrottlingClient{inner: inner, limiter: limiter}
}

// Fetch waits for a token for the URL's domain, then delegates.
func (c *ThrottlingClient) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return Page{}, err
	}
	return c.inner.Fetch(ctx, rawURL)
}
