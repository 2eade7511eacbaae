// Package queue provides serial execution contexts.
//
// A Serial queue runs submitted work one item at a time, in submission
// order, on a single worker goroutine. Each endpoint owns exactly one Serial
// queue; every transport call and every endpoint state mutation is funneled
// through it, so the queue (not a lock) is the concurrency boundary.
//
// # Blocking
//
// Async never blocks the caller: the backlog is unbounded. Sync blocks until
// the submitted function has run. Calling Sync from work that is already
// running on the same queue deadlocks.
package queue

import (
	"sync"
)

// Serial is a strictly ordered, single-worker execution context.
type Serial struct {
	label string

	// mu guards items and closed.
	mu     sync.Mutex
	items  []func()
	closed bool
	wake   chan struct{}

	// exec is held while a work item runs, on the worker or inline after
	// Close, so work never overlaps.
	exec sync.Mutex

	done chan struct{}
}

// New creates a serial queue and starts its worker.
func New(label string) *Serial {
	q := &Serial{
		label: label,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Label returns the queue label given to New.
func (q *Serial) Label() string {
	return q.label
}

// String returns the label. fmt never reads the queue's guarded state.
func (q *Serial) String() string {
	return "queue(" + q.label + ")"
}

// Async schedules fn to run on the queue and returns immediately. It
// reports false when the queue is closed and fn was dropped.
func (q *Serial) Async(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync runs fn on the queue and waits for it to finish.
// After Close, fn runs on the calling goroutine, still serialized with any
// work the worker is draining.
func (q *Serial) Sync(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.exec.Lock()
		defer q.exec.Unlock()
		fn()
		return
	}
	q.mu.Unlock()

	finished := make(chan struct{})
	q.Async(func() {
		defer close(finished)
		fn()
	})

	// Close may have raced the Async above and dropped the item.
	select {
	case <-finished:
	case <-q.done:
		select {
		case <-finished:
		default:
			q.exec.Lock()
			defer q.exec.Unlock()
			fn()
		}
	}
}

// Close stops accepting new work. Work already queued still runs, then the
// worker exits. Close may be called from work running on the queue.
// It is safe to call Close multiple times.
func (q *Serial) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Done returns a channel that is closed once the worker has exited.
func (q *Serial) Done() <-chan struct{} {
	return q.done
}

// run is the worker loop.
func (q *Serial) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		q.exec.Lock()
		fn()
		q.exec.Unlock()
	}
}
