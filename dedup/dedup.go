// Package dedup guarantees at most one in-flight fetch per key: concurrent
// callers for the same key join the same underlying call and observe the
// identical result. Cancellation is reference-counted: a caller walking
// away from a shared fetch only cancels the underlying work if it was the
// last remaining joiner, so a departing prefetch job never aborts a
// foreground caller waiting on the same key.
package dedup

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned to joiners of a fetch that was force-cancelled
// via Cancel or CancelAll.
var ErrCancelled = errors.New("dedup: cancelled")

// FetchFunc performs the actual work for a key. It receives a context
// derived from the Group, not from any single caller, so that one caller's
// departure does not by itself abort the fetch while other joiners remain
// attached.
type FetchFunc func(ctx context.Context) ([]byte, error)

// call represents one in-flight fetch shared by every current joiner.
type call struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	refs   int
	val    []byte
	err    error
}

// Group deduplicates concurrent fetches by key. The zero value is ready to
// use.
type Group struct {
	mu    sync.Mutex
	calls map[string]*call
}

// Run executes fn for key if no fetch is already in flight for it, or joins
// the existing in-flight fetch otherwise. Every joiner observes the
// identical result or error.
//
// If ctx is cancelled before the fetch completes, Run returns ctx.Err()
// immediately for this caller. The shared fetch keeps running for any
// other joiners still attached; it is only cancelled once every joiner,
// including the original caller, has departed.
func (g *Group) Run(ctx context.Context, key string, fn FetchFunc) ([]byte, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call)
	}
	c, joined := g.calls[key]
	if joined {
		c.refs++
		g.mu.Unlock()
	} else {
		cctx, cancel := context.WithCancelCause(context.Background())
		c = &call{ctx: cctx, cancel: cancel, done: make(chan struct{}), refs: 1}
		g.calls[key] = c
		g.mu.Unlock()

		go func() {
			c.val, c.err = fn(c.ctx)
			g.mu.Lock()
			if g.calls[key] == c {
				delete(g.calls, key)
			}
			g.mu.Unlock()
			close(c.done)
		}()
	}

	select {
	case <-c.done:
		if c.err != nil && errors.Is(context.Cause(c.ctx), ErrCancelled) {
			return nil, ErrCancelled
		}
		return c.val, c.err
	case <-ctx.Done():
		g.departLocked(key, c)
		return nil, ctx.Err()
	}
}

// departLocked decrements the joiner refcount for c and, if this was the
// last joiner, cancels the underlying fetch.
func (g *Group) departLocked(key string, c *call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.refs--
	if c.refs <= 0 && g.calls[key] == c {
		c.cancel(ErrCancelled)
	}
}

// Cancel force-cancels the in-flight fetch for key, if any, regardless of
// how many joiners are still attached. All joiners observe ErrCancelled.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	c, ok := g.calls[key]
	g.mu.Unlock()
	if ok {
		c.cancel(ErrCancelled)
	}
}

// CancelAll force-cancels every in-flight fetch.
func (g *Group) CancelAll() {
	g.mu.Lock()
	calls := make([]*call, 0, len(g.calls))
	for _, c := range g.calls {
		calls = append(calls, c)
	}
	g.mu.Unlock()
	for _, c := range calls {
		c.cancel(ErrCancelled)
	}
}
