// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// QNode is a caller-supplied wait record for QLock.
//
// Each waiter provides its own node and spins only on that node's blocked
// flag, so handing the lock to a successor touches one private cache line
// instead of a shared counter. The node must outlive the lock hold it was
// used for; a stack-allocated node in the locking function is the common
// pattern.
//
// The zero value is ready to use. A node must not be reused while a hold
// acquired through it is still outstanding.
type QNode struct {
	_       pad
	blocked atomix.Bool
	_       pad
	next    atomic.Pointer[QNode]
	_       pad
}

// QLock is a queue-based spinlock protecting a value of type T.
//
// Waiters form an explicit FIFO: the lock holds only a tail pointer to the
// most recently arrived QNode, and each arriving waiter links itself behind
// the previous tail. Release hands the lock to the immediate successor, so
// acquisition order is arrival order.
//
// The zero value is an unlocked QLock around T's zero value.
type QLock[T any] struct {
	_    pad
	tail atomic.Pointer[QNode]
	_    pad
	data T
}

// NewQLock creates an unlocked QLock holding value.
func NewQLock[T any](value T) *QLock[T] {
	return &QLock[T]{data: value}
}

// Lock acquires the lock using node as this caller's queue entry and
// returns a guard bound to the hold.
//
// If the lock is held, the caller spins on node's private blocked flag
// until its predecessor hands over. Waiters are served in arrival order.
func (l *QLock[T]) Lock(node *QNode) Guard[T] {
	node.blocked.Store(true)
	node.next.Store(nil)
	prev := l.tail.Swap(node)
	if prev != nil {
		prev.next.Store(node)
		sw := spin.Wait{}
		for node.blocked.LoadAcquire() {
			sw.Once()
		}
	}
	return Guard[T]{lock: l, node: node}
}

// TryLock attempts to acquire the lock without spinning.
//
// It succeeds only when no holder and no waiters exist. Returns the guard
// and true on success; a zero guard and false otherwise.
func (l *QLock[T]) TryLock(node *QNode) (Guard[T], bool) {
	node.blocked.Store(true)
	node.next.Store(nil)
	if !l.tail.CompareAndSwap(nil, node) {
		return Guard[T]{}, false
	}
	return Guard[T]{lock: l, node: node}, true
}

// Force returns the protected value without any locking.
//
// The caller must have externally established that no concurrent access is
// possible (for example, reading the running thread's own control block
// from its own context). Force carries no guarantee beyond that argument.
func (l *QLock[T]) Force() *T {
	return &l.data
}

// unlock releases the hold entered through node.
//
// Fast path: no successor is linked and the tail still points at node, so
// a single CAS empties the queue. If the CAS fails a new waiter is mid
// insertion between its tail swap and the next-pointer publish; wait for
// the link, then clear the successor's blocked flag to hand over.
func (l *QLock[T]) unlock(node *QNode) {
	next := node.next.Load()
	if next == nil {
		if l.tail.CompareAndSwap(node, nil) {
			return
		}
		sw := spin.Wait{}
		for next = node.next.Load(); next == nil; next = node.next.Load() {
			sw.Once()
		}
	}
	next.blocked.StoreRelease(false)
}

// Guard represents one hold of a QLock.
//
// A guard is live from Lock/TryLock until Unlock. Get and Unlock panic on
// a guard that was already released (or never acquired), which turns
// double-unlock and use-after-release into immediate contract violations
// instead of silent corruption.
type Guard[T any] struct {
	lock *QLock[T]
	node *QNode
	done bool
}

// Get returns the protected value. Panics if the guard is not live.
func (g *Guard[T]) Get() *T {
	if g.lock == nil || g.done {
		panic("ksched: guard is not held")
	}
	return &g.lock.data
}

// Unlock releases the lock. Panics on a second call or on a zero guard.
func (g *Guard[T]) Unlock() {
	if g.lock == nil || g.done {
		panic("ksched: unlock of released guard")
	}
	g.done = true
	g.lock.unlock(g.node)
}
