package clients

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between requests to one upstream.
// Each broker client owns one Throttle sized to that vendor's rate limit;
// concurrent callers queue in arrival order.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewThrottle creates a throttle with the given minimum request interval.
// A zero or negative interval disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Wait blocks until the caller may issue the next request or ctx is done.
// The slot is reserved before sleeping, so waiters cannot leapfrog each other.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if now.Before(t.next) {
		wait = t.next.Sub(now)
		t.next = t.next.Add(t.interval)
	} else {
		t.next = now.Add(t.interval)
	}
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
