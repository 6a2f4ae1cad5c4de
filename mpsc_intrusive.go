// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Link is the embedded chain field for IntrusiveMPSC.
//
// An element type embeds one Link and hands the queue an accessor for it.
// The link holds an atomic next pointer and a non-owning back-reference to
// its element; the back-reference is set while the element is queued and
// cleared when the consumer captures it, so a captured element never keeps
// its successor alive through a stale link.
//
// A Link must stay at a fixed address while its element is queued, which
// embedding guarantees. The zero value is ready to use.
type Link[T any] struct {
	next  atomic.Pointer[Link[T]]
	owner *T
}

// IntrusiveMPSC is an unbounded multi-producer single-consumer FIFO whose
// chain runs through links embedded in the elements themselves.
//
// Enqueue never allocates and never fails: the element carries its own
// queue node. The cost of that shape is exclusivity on the consumer side,
// enforced by a flag rather than by blocking; a dequeue that finds the
// flag taken returns ErrBusy.
//
// A permanently resident stub link keeps the chain non-empty. Producers
// publish in two steps (swap head, then link the predecessor), so the
// consumer may momentarily see a node whose next pointer is not written
// yet; the dequeue algorithm waits out exactly that window and no other.
type IntrusiveMPSC[T any] struct {
	_      pad
	head   atomic.Pointer[Link[T]] // most recently published link
	_      pad
	busy   atomix.Uint64 // single-consumer flag: 0 free, 1 held
	_      pad
	tail   *Link[T] // next link the consumer takes; guarded by busy
	stub   Link[T]
	linkOf func(*T) *Link[T]
}

// NewIntrusiveMPSC creates an empty queue. linkOf must return the address
// of the Link embedded in its element and must be pure.
func NewIntrusiveMPSC[T any](linkOf func(*T) *Link[T]) *IntrusiveMPSC[T] {
	q := &IntrusiveMPSC[T]{}
	return q.init(linkOf)
}

func (q *IntrusiveMPSC[T]) init(linkOf func(*T) *Link[T]) *IntrusiveMPSC[T] {
	if linkOf == nil {
		panic("ksched: nil link accessor")
	}
	q.linkOf = linkOf
	q.head.Store(&q.stub)
	q.tail = &q.stub
	return q
}

// Enqueue appends elem to the queue (multiple producers safe).
//
// The element must not already be queued anywhere through the same Link.
// Enqueue cannot fail and does not allocate.
func (q *IntrusiveMPSC[T]) Enqueue(elem *T) {
	if elem == nil {
		panic("ksched: enqueue of nil element")
	}
	ln := q.linkOf(elem)
	ln.owner = elem
	q.push(ln)
}

// push publishes ln in two steps: swap it into head, then set the previous
// head's next pointer. Between the two steps the chain from tail ends one
// node short of ln; consumers bridge that window in dequeue.
func (q *IntrusiveMPSC[T]) push(ln *Link[T]) {
	ln.next.Store(nil)
	prev := q.head.Swap(ln)
	prev.next.Store(ln)
}

// Dequeue removes and returns the oldest element (single consumer only).
//
// Returns (nil, ErrBusy) when another caller holds the consumer side, and
// (nil, ErrWouldBlock) when the queue is empty. The captured element's
// link is cleared and may be reused to enqueue the element again.
func (q *IntrusiveMPSC[T]) Dequeue() (*T, error) {
	if !q.busy.CompareAndSwapAcqRel(0, 1) {
		return nil, ErrBusy
	}
	elem, err := q.dequeue()
	q.busy.StoreRelease(0)
	return elem, err
}

// dequeue runs the consumer algorithm. Caller holds busy.
func (q *IntrusiveMPSC[T]) dequeue() (*T, error) {
	tail := q.tail
	if tail == &q.stub {
		next := tail.next.Load()
		if next == nil {
			return nil, ErrWouldBlock
		}
		// Step past the stub; it is never handed to the caller.
		q.tail = next
		tail = next
	}
	if next := tail.next.Load(); next != nil {
		q.tail = next
		return q.capture(tail), nil
	}
	// tail looks like the only element. Cycle the stub in behind it so
	// tail regains a successor, then wait out any producer caught between
	// its head swap and the next-pointer publish.
	q.push(&q.stub)
	sw := spin.Wait{}
	next := tail.next.Load()
	for next == nil {
		sw.Once()
		next = tail.next.Load()
	}
	q.tail = next
	return q.capture(tail), nil
}

// capture detaches ln from the chain and returns its element.
func (q *IntrusiveMPSC[T]) capture(ln *Link[T]) *T {
	elem := ln.owner
	ln.owner = nil
	ln.next.Store(nil)
	return elem
}

// Drain empties the queue under one consumer hold, passing every element
// to fn in queue order, and returns the number drained.
//
// Returns (0, ErrBusy) when another caller holds the consumer side. A nil
// fn discards the elements. Like Dequeue, Drain may briefly wait for
// producers mid-publish; elements enqueued while Drain runs are drained
// too.
func (q *IntrusiveMPSC[T]) Drain(fn func(*T)) (int, error) {
	if !q.busy.CompareAndSwapAcqRel(0, 1) {
		return 0, ErrBusy
	}
	defer q.busy.StoreRelease(0)
	n := 0
	for {
		elem, err := q.dequeue()
		if err != nil {
			break
		}
		if fn != nil {
			fn(elem)
		}
		n++
	}
	return n, nil
}
