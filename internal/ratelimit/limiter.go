// Package ratelimit paces requests to a registry credential. Each credential
// owns one "next allowed request time"; every caller sharing the credential
// blocks on it, so concurrent mapping runs in one process cannot race it.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between requests and supports pausing
// all callers until a registry's reset window has passed.
type Limiter struct {
	clock clockwork.Clock
	lim   *rate.Limiter

	mu           sync.Mutex
	blockedUntil time.Time
}

// New returns a Limiter allowing one request per interval. An interval <= 0
// disables pacing.
func New(interval time.Duration, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		clock: clock,
		lim:   rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the caller may issue one request or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	delay, r := l.reserve()
	if delay <= 0 {
		return nil
	}
	select {
	case <-l.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(l.clock.Now())
		return ctx.Err()
	}
}

// Pause pushes the next allowed request time at least d into the future for
// every caller of this limiter.
func (l *Limiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.clock.Now().Add(d)
	if until.After(l.blockedUntil) {
		l.blockedUntil = until
	}
}

// Clock returns the limiter's clock.
func (l *Limiter) Clock() clockwork.Clock {
	return l.clock
}

func (l *Limiter) reserve() (time.Duration, *rate.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	start := now
	if l.blockedUntil.After(now) {
		start = l.blockedUntil
	}
	r := l.lim.ReserveN(start, 1)
	return r.DelayFrom(now), r
}

// Pool hands out one Limiter per source credential.
type Pool struct {
	clock clockwork.Clock

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewPool creates an empty pool using clock for every limiter it creates.
func NewPool(clock clockwork.Clock) *Pool {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pool{clock: clock, limiters: make(map[string]*Limiter)}
}

// For returns the limiter for (source, apiKey), creating it with interval on
// first use. The key itself is never stored.
func (p *Pool) For(source, apiKey string, interval time.Duration) *Limiter {
	id := Fingerprint(source, apiKey)
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[id]; ok {
		return l
	}
	l := New(interval, p.clock)
	p.limiters[id] = l
	return l
}

// Fingerprint identifies a credential without retaining it.
func Fingerprint(source, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%s:%s", source, hex.EncodeToString(sum[:8]))
}
