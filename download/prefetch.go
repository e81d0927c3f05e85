package download

import (
	"context"
	"sync"

	"github.com/corymoss/imagecache/fingerprint"
)

// PrefetchRegistry tracks background fetches started on a caller's behalf so
// they can be cancelled individually or all at once without blocking on
// their completion.
type PrefetchRegistry struct {
	mu     sync.Mutex
	cancel map[fingerprint.Fingerprint]context.CancelFunc
}

// NewPrefetchRegistry creates an empty registry.
func NewPrefetchRegistry() *PrefetchRegistry {
	return &PrefetchRegistry{cancel: make(map[fingerprint.Fingerprint]context.CancelFunc)}
}

// Start begins tracking a prefetch job for fp, deriving a cancellable
// context from parent. The returned context should be used for the fetch;
// done must be called by the caller once the fetch completes, successfully
// or not, so the registry entry doesn't outlive the job.
func (r *PrefetchRegistry) Start(parent context.Context, fp fingerprint.Fingerprint) (ctx context.Context, done func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.cancel[fp] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		if r.cancel[fp] != nil {
			delete(r.cancel, fp)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Cancel stops the prefetch job for fp, if one is tracked. It reports
// whether a job was found.
func (r *PrefetchRegistry) Cancel(fp fingerprint.Fingerprint) bool {
	r.mu.Lock()
	cancel, ok := r.cancel[fp]
	if ok {
		delete(r.cancel, fp)
	}
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll stops every tracked prefetch job.
func (r *PrefetchRegistry) CancelAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancel))
	for fp, cancel := range r.cancel {
		cancels = append(cancels, cancel)
		delete(r.cancel, fp)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Len reports the number of prefetch jobs currently tracked.
func (r *PrefetchRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancel)
}
