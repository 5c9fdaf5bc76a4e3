package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
)

// ErrRateLimitExceeded is returned when a caller has spent its burst.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket limits chat turns per caller. Each caller starts with a full
// burst of capacity turns and regains one turn per refillRate, accrued
// continuously. The release func is a no-op; a turn is spent once taken.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	perToken time.Duration
	callers  map[string]*allowance
	pruneAt  int // caller count that triggers the next prune
	now      func() time.Time
}

const minPruneAt = 1024

type allowance struct {
	tokens float64
	asOf   time.Time
}

func NewTokenBucket(capacity int, refillRate time.Duration) *TokenBucket {
	if refillRate <= 0 {
		refillRate = time.Second
	}
	return &TokenBucket{
		capacity: float64(max(capacity, 1)),
		perToken: refillRate,
		callers:  make(map[string]*allowance),
		pruneAt:  minPruneAt,
		now:      time.Now,
	}
}

func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	if len(tb.callers) >= tb.pruneAt {
		tb.prune()
	}

	a := tb.refill(key)
	if a.tokens < 1 {
		return nil, ErrRateLimitExceeded
	}
	a.tokens--
	return func() {}, nil
}

// Remaining reports how many whole turns key could take right now.
func (tb *TokenBucket) Remaining(key string) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return int(tb.refill(key).tokens)
}

// refill brings key's allowance up to date. Callers hold mu.
func (tb *TokenBucket) refill(key string) *allowance {
	now := tb.now()
	a, ok := tb.callers[key]
	if !ok {
		a = &allowance{tokens: tb.capacity, asOf: now}
		tb.callers[key] = a
		return a
	}
	if elapsed := now.Sub(a.asOf); elapsed > 0 {
		a.tokens = min(tb.capacity, a.tokens+float64(elapsed)/float64(tb.perToken))
		a.asOf = now
	}
	return a
}

// prune forgets callers whose bucket has refilled completely; a forgotten
// caller starts again with a full bucket, which is the same state. Callers
// hold mu.
func (tb *TokenBucket) prune() {
	for key := range tb.callers {
		if tb.refill(key).tokens >= tb.capacity {
			delete(tb.callers, key)
		}
	}
	tb.pruneAt = max(minPruneAt, 2*len(tb.callers))
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
