// Package util provides an unbounded, lock-free hand-off queue used to move
// values from the reactor goroutine to background consumers.
//
// Features and Guarantees:
//
//   - Non-Blocking Producers: Push never waits for the consumer, the queue grows as needed
//   - Ownership Transfer: a pushed value belongs to the consumer, the producer must not touch it again
//   - FIFO: values pushed by one producer are received in push order
//   - Single Consumer: values are delivered through the channel returned by Recv
//   - Close Drains: every value for which Push returned true is delivered, then Recv is closed
package util

import (
	"sync/atomic"
)

// node is a single element of the linked list
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// Handoff is an unbounded multi-producer single-consumer queue.
// Internally it is a linked list with a sentinel head that is appended to with
// compare-and-swap, a forwarding goroutine moves the values into the Recv channel.
type Handoff[T any] struct {
	head   *node[T] // only touched by the forwarding goroutine
	tail   atomic.Pointer[node[T]]
	out    chan *T
	notify chan struct{}
	closed atomic.Bool

	// producers between their closed check and the completed append
	pushing atomic.Int64
}

// NewHandoff creates a new queue and starts its forwarding goroutine
func NewHandoff[T any]() *Handoff[T] {
	sentinel := &node[T]{}

	q := &Handoff[T]{
		head:   sentinel,
		out:    make(chan *T),
		notify: make(chan struct{}, 1),
	}
	q.tail.Store(sentinel)

	go q.forward()

	return q
}

// Push appends value to the queue without blocking.
// Returns false if value is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Handoff[T]) Push(value *T) bool {
	if value == nil {
		return false
	}

	q.pushing.Add(1)
	if q.closed.Load() {
		q.pushing.Add(-1)
		return false
	}

	n := &node[T]{value: value}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next != nil {
			// another producer appended but did not move the tail yet, help it
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.pushing.Add(-1)
			q.wake()
			return true
		}
	}
}

// Recv returns the channel the queued values are delivered on.
// The channel is closed after Close was called and all values were delivered.
func (q *Handoff[T]) Recv() <-chan *T {
	return q.out
}

// Close prevents further pushes. Values already queued are still delivered.
func (q *Handoff[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// wake signals the forwarding goroutine without blocking
func (q *Handoff[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
		// a signal is already pending
	}
}

// forward moves values from the list into the out channel
func (q *Handoff[T]) forward() {
	defer close(q.out)

	for {
		for next := q.head.next.Load(); next != nil; next = q.head.next.Load() {
			value := next.value
			next.value = nil
			q.head = next
			q.out <- value
		}

		if q.closed.Load() {
			// producers are checked before the list, an append is visible once pushing dropped
			idle := q.pushing.Load() == 0
			if q.head.next.Load() != nil {
				continue
			}
			if idle {
				return
			}
			// a producer passed the closed check before Close, its wake follows
		}

		<-q.notify
	}
}
