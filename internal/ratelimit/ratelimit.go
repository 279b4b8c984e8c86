// Package ratelimit paces outbound requests per destination host.
package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one limiter per hostname. Each limiter has a burst of one,
// so consecutive request starts to the same host are at least delay apart and
// the first request to a host never waits. Reservation and the recorded start
// time are updated under the limiter's own lock, so concurrent callers queue
// behind each other instead of observing a stale last-request time.
type HostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	delay    time.Duration
}

// New creates a HostLimiter with the given minimum gap between request starts.
// A zero delay disables pacing.
func New(delay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Wait blocks until a request to rawURL's host may start.
// It returns an error for URLs without a host or when ctx ends first.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	host, err := Hostname(rawURL)
	if err != nil {
		return err
	}
	return h.limiterFor(host).Wait(ctx)
}

// Hosts returns the number of hosts seen so far
func (h *HostLimiter) Hosts() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.limiters)
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
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

	every := rate.Inf
	if h.delay > 0 {
		every = rate.Every(h.delay)
	}
	limiter = rate.NewLimiter(every, 1)
	h.limiters[host] = limiter
	return limiter
}

// Hostname extracts the pacing key from a URL
func Hostname(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := parsed.Hostname()
	if host == "" {
		return "", &url.Error{Op: "parse", URL: rawURL, Err: errors.New("missing host in URL")}
	}
	return host, nil
}
