// Package rate throttles local API callers, one token bucket per key.
package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	burst  int
	limit  rate.Limit
	expiry time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter allows burst calls at once per key, refilled one every
// interval. Keys idle for longer than expiry are forgotten by Prune.
func NewLimiter(burst int, interval, expiry time.Duration) *Limiter {
	return &Limiter{
		burst:   burst,
		limit:   rate.Every(interval),
		expiry:  expiry,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastAccess = now
	return cl.limiter.AllowN(now, 1)
}

// Prune drops the keys idle for longer than the expiry and returns how many
// were dropped.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for key, cl := range l.clients {
		if now.Sub(cl.lastAccess) > l.expiry {
			delete(l.clients, key)
			n++
		}
	}
	return n
}

// Run prunes idle keys every minute until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Prune()
		}
	}
}
