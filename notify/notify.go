// Package notify implements a memory-pressure hook: a point where the host
// platform's low-memory signal can be plumbed in to trigger cache eviction,
// without the core depending on any platform API. Each
// MemoryPressureNotifier is independent; the package keeps no process-wide
// instance, and each Engine owns its own notifier.
package notify

import "sync"

// Subscription detaches a listener when Unsubscribe is called. Calling
// Unsubscribe more than once is a no-op.
type Subscription struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe detaches the listener this Subscription was returned for.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// MemoryPressureNotifier fans a single "memory pressure" event out to any
// number of subscribers. The zero value is ready to use.
type MemoryPressureNotifier struct {
	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

// Subscribe registers fn to be called on every future Notify. The returned
// Subscription detaches fn when Unsubscribe is called.
func (n *MemoryPressureNotifier) Subscribe(fn func()) *Subscription {
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	return &Subscription{unsubscribe: func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}}
}

// Notify invokes every currently-subscribed listener. Listeners are
// snapshotted before invocation, so a listener that unsubscribes itself
// mid-call does not race the iteration.
func (n *MemoryPressureNotifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
