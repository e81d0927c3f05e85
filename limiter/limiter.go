// Package limiter provides a counting semaphore that admits at most N
// concurrent operations, granting waiters in FIFO order.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the default number of concurrent operations
// admitted.
const DefaultMaxConcurrent = 6

// Limiter bounds concurrency to N simultaneous operations. It wraps
// golang.org/x/sync/semaphore.Weighted, which grants Acquire calls in FIFO
// order once saturated.
type Limiter struct {
	sem *semaphore.Weighted
	n   int64
}

// New creates a Limiter admitting at most n concurrent operations. n <= 0
// is treated as DefaultMaxConcurrent.
func New(n int) *Limiter {
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), n: int64(n)}
}

// MaxConcurrent returns the configured concurrency budget.
func (l *Limiter) MaxConcurrent() int {
	return int(l.n)
}

// Run acquires a permit, invokes op, and releases the permit on every exit
// path (success, error, or ctx cancellation while waiting for a permit).
func (l *Limiter) Run(ctx context.Context, op func() ([]byte, error)) ([]byte, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return op()
}
