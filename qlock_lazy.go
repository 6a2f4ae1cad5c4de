// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import "code.hybscloud.com/atomix"

// LazyQLock is a QLock over a value that does not exist yet.
//
// The protected storage starts out as T's zero value and becomes valid only
// after Init. The initialized flag is published with release ordering while
// the inner lock is held, so any acquirer that observes the flag also
// observes the stored value.
//
// There is no de-initialization: once initialized, a LazyQLock stays
// initialized for the life of the program. A reset operation would race
// with concurrent LockIfInit checks, so none is provided.
//
// The zero value is an uninitialized LazyQLock.
type LazyQLock[T any] struct {
	inner  QLock[T]
	inited atomix.Bool
}

// Init stores value and marks the lock initialized.
//
// The first call wins; later calls (and racing concurrent calls that lose)
// are no-ops. The flag is re-checked under the inner lock so two racing
// initializers cannot both write.
func (l *LazyQLock[T]) Init(value T) {
	if l.inited.LoadAcquire() {
		return
	}
	var node QNode
	g := l.inner.Lock(&node)
	if !l.inited.LoadAcquire() {
		*g.Get() = value
		l.inited.StoreRelease(true)
	}
	g.Unlock()
}

// Initialized reports whether Init has completed.
func (l *LazyQLock[T]) Initialized() bool {
	return l.inited.LoadAcquire()
}

// Lock acquires the lock. Panics if the value was never initialized;
// locking before Init is a caller bug, not a recoverable condition.
func (l *LazyQLock[T]) Lock(node *QNode) Guard[T] {
	if !l.inited.LoadAcquire() {
		panic("ksched: lock of uninitialized LazyQLock")
	}
	return l.inner.Lock(node)
}

// TryLock attempts to acquire the lock without spinning. Panics if the
// value was never initialized.
func (l *LazyQLock[T]) TryLock(node *QNode) (Guard[T], bool) {
	if !l.inited.LoadAcquire() {
		panic("ksched: lock of uninitialized LazyQLock")
	}
	return l.inner.TryLock(node)
}

// LockIfInit acquires the lock only when initialized. Returns a zero guard
// and false otherwise, instead of panicking.
func (l *LazyQLock[T]) LockIfInit(node *QNode) (Guard[T], bool) {
	if !l.inited.LoadAcquire() {
		return Guard[T]{}, false
	}
	return l.inner.Lock(node), true
}

// WithLocked locks around fn using a disposable wait-node, passing the
// protected value. The lock is released when fn returns, including by
// panic. Panics if the value was never initialized.
func (l *LazyQLock[T]) WithLocked(fn func(*T)) {
	var node QNode
	g := l.Lock(&node)
	defer g.Unlock()
	fn(g.Get())
}

// TryWithLocked is WithLocked on TryLock terms: if the lock is free it runs
// fn under the lock and reports true; if the lock is held it reports false
// without spinning. Panics if the value was never initialized.
func (l *LazyQLock[T]) TryWithLocked(fn func(*T)) bool {
	var node QNode
	g, ok := l.TryLock(&node)
	if !ok {
		return false
	}
	defer g.Unlock()
	fn(g.Get())
	return true
}

// Force returns the protected value without locking or an initialization
// check beyond the panic below. Same contract as QLock.Force: the caller
// must have externally established exclusivity.
func (l *LazyQLock[T]) Force() *T {
	if !l.inited.LoadAcquire() {
		panic("ksched: force access of uninitialized LazyQLock")
	}
	return l.inner.Force()
}
