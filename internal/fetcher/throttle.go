package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostThrottle enforces a minimum interval between requests to the same host.
// It is safe for concurrent use; each host gets its own limiter with burst 1.
type HostThrottle struct {
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostThrottle creates a throttle. An interval <= 0 disables throttling.
func NewHostThrottle(interval time.Duration) *HostThrottle {
	return &HostThrottle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host may be contacted again.
func (t *HostThrottle) Wait(ctx context.Context, host string) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}
	return t.limiter(strings.ToLower(host)).Wait(ctx)
}

// WaitURL is Wait keyed by the URL's hostname.
func (t *HostThrottle) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return t.Wait(ctx, rawURL)
	}
	return t.Wait(ctx, u.Hostname())
}

// Interval returns the configured spacing.
func (t *HostThrottle) Interval() time.Duration {
	if t == nil {
		return 0
	}
	return t.interval
}

func (t *HostThrottle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[host] = l
	}
	return l
}
