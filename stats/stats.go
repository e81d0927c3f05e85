// Package stats tracks cache hit/miss counters with pure, immutable
// snapshots. Producers replace the counters atomically; readers always see
// a consistent view.
package stats

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable view of counters at a point in time.
type Snapshot struct {
	Hits      uint64
	Misses    uint64
	StartedAt time.Time
}

// Total returns Hits + Misses.
func (s Snapshot) Total() uint64 {
	return s.Hits + s.Misses
}

// HitRatio returns Hits / Total, or 0 when Total is 0.
func (s Snapshot) HitRatio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Recorder is a process-wide (or per-cache) hit/miss counter. All methods
// are safe for concurrent use; RecordHit/RecordMiss are monotonic
// increments, and Snapshot/Reset always observe/produce a consistent view.
type Recorder struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	startedAt atomic.Int64 // unix nanos

	mirror Mirror // optional Prometheus mirror, nil if unconfigured
}

// Mirror receives the same hit/miss events a Recorder observes, so an
// external metrics system can be kept in sync without the core depending on
// it for correctness.
type Mirror interface {
	Hit()
	Miss()
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMirror attaches a Mirror (see prometheus.go's PrometheusMirror) that
// observes every hit/miss alongside the pure counters.
func WithMirror(m Mirror) Option {
	return func(r *Recorder) {
		r.mirror = m
	}
}

// New creates a Recorder with counters at zero and StartedAt set to now.
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	r.startedAt.Store(nowFunc().UnixNano())
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// nowFunc is overridable in tests.
var nowFunc = time.Now

// RecordHit increments the hit counter.
func (r *Recorder) RecordHit() {
	r.hits.Add(1)
	if r.mirror != nil {
		r.mirror.Hit()
	}
}

// RecordMiss increments the miss counter.
func (r *Recorder) RecordMiss() {
	r.misses.Add(1)
	if r.mirror != nil {
		r.mirror.Miss()
	}
}

// Snapshot returns a consistent, immutable view of the current counters.
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		Hits:      r.hits.Load(),
		Misses:    r.misses.Load(),
		StartedAt: time.Unix(0, r.startedAt.Load()),
	}
}

// Reset zeroes the counters and restarts the StartedAt clock, returning the
// snapshot as it was immediately before the reset.
func (r *Recorder) Reset() Snapshot {
	before := r.Snapshot()
	r.hits.Store(0)
	r.misses.Store(0)
	r.startedAt.Store(nowFunc().UnixNano())
	return before
}
