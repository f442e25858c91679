package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/chorus/internal/model"
)

// Limiter keeps one token bucket per provider so a slow vendor quota never
// throttles the others.
type Limiter struct {
	mu      sync.Mutex
	buckets map[model.ProviderName]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLimiter creates a limiter allowing requestsPerSecond per provider.
// A non-positive requestsPerSecond disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Limiter{
		buckets: make(map[model.ProviderName]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Wait blocks until p may make another call or ctx is done
func (l *Limiter) Wait(ctx context.Context, p model.ProviderName) error {
	if l == nil {
		return ctx.Err()
	}
	return l.bucket(p).Wait(ctx)
}

func (l *Limiter) bucket(p model.ProviderName) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[p]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[p] = b
	}
	return b
}
