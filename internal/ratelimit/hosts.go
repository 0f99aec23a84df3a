// Package ratelimit throttles outbound requests per remote host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Hosts hands out one token bucket per host so that listing pages and
// map API calls are throttled independently
type Hosts struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewHosts creates a per-host limiter. rps <= 0 disables throttling.
func NewHosts(rps float64, burst int) *Hosts {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}

	return &Hosts{
		limiters: make(map[string]*rate.Limiter),
		rps:      limit,
		burst:    burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed or ctx ends
func (h *Hosts) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return h.limiter(host).Wait(ctx)
}

// Allow reports whether a request to rawURL's host may proceed now,
// consuming a token if so
func (h *Hosts) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return h.limiter(host).Allow()
}

// SlowDown lowers a host's rate to one request per interval, used to
// honor a robots.txt Crawl-delay. It never speeds a host up.
func (h *Hosts) SlowDown(host string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	target := rate.Every(interval)
	l := h.limiter(host)
	if target < l.Limit() {
		l.SetLimit(target)
	}
}

func (h *Hosts) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.rps, h.burst)
		h.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return u.Host, nil
}
