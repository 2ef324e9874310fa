package oracle

import (
	"context"
	"sync"
	"time"
)

// tokenBucket is a minimal token-bucket rate limiter, one per routing
// profile, so a burst of requests for one profile cannot starve another's
// budget with the upstream oracle.
type tokenBucket struct {
	mu         sync.Mutex
	ratePerSec float64
	burst      float64
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(ratePerSec, burst float64) *tokenBucket {
	return &tokenBucket{
		ratePerSec: ratePerSec,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// wait blocks until a token is available or ctx is done.
func (b *tokenBucket) wait(ctx context.Context) error {
	for {
		wait, ok := b.tryTake()
		if ok {
			return nil
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *tokenBucket) tryTake() (wait time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.burst, b.tokens+elapsed*b.ratePerSec)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}

	deficit := 1 - b.tokens
	return time.Duration(deficit / b.ratePerSec * float64(time.Second)), false
}
