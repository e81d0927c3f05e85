package stats

import "github.com/prometheus/client_golang/prometheus"

// PrometheusMirror mirrors hit/miss events into Prometheus counters. It is
// purely additive instrumentation: Recorder's pure Snapshot API remains the
// source of truth, this only exposes the same events to a metrics scraper.
type PrometheusMirror struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewPrometheusMirror creates and registers a hit/miss counter pair on reg
// under the given namespace/subsystem, e.g. NewPrometheusMirror(reg,
// "imagecache", "disk").
func NewPrometheusMirror(reg prometheus.Registerer, namespace, subsystem string) (*PrometheusMirror, error) {
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses.",
	})
	if err := reg.Register(hits); err != nil {
		return nil, err
	}
	if err := reg.Register(misses); err != nil {
		return nil, err
	}
	return &PrometheusMirror{hits: hits, misses: misses}, nil
}

// Hit implements Mirror.
func (m *PrometheusMirror) Hit() { m.hits.Inc() }

// Miss implements Mirror.
func (m *PrometheusMirror) Miss() { m.misses.Inc() }
