package notify

import (
	"sync/atomic"
	"testing"
)

func TestNotifyCallsAllSubscribers(t *testing.T) {
	t.Parallel()

	var n MemoryPressureNotifier
	var a, b atomic.Int32
	n.Subscribe(func() { a.Add(1) })
	n.Subscribe(func() { b.Add(1) })

	n.Notify()
	n.Notify()

	if a.Load() != 2 || b.Load() != 2 {
		t.Fatalf("a=%d b=%d, want 2 and 2", a.Load(), b.Load())
	}
}

func TestUnsubscribeDetaches(t *testing.T) {
	t.Parallel()

	var n MemoryPressureNotifier
	var calls atomic.Int32
	sub := n.Subscribe(func() { calls.Add(1) })

	n.Notify()
	sub.Unsubscribe()
	n.Notify()

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	var n MemoryPressureNotifier
	sub := n.Subscribe(func() {})
	sub.Unsubscribe()
	sub.Unsubscribe()
}
