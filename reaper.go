// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

// Reap drains the exited-thread queue once, releasing each captured
// thread's resources, and returns the number reaped.
//
// Exited threads are parked on the queue by Reschedule precisely so their
// stacks and TLS blocks are freed here, outside the reschedule window.
// Each exited thread is captured exactly once. Returns 0 when the queue
// is empty or when another caller is already draining it.
func (s *Scheduler) Reap() int {
	n, err := s.exited.Drain(func(t *Thread) {
		s.release(t)
	})
	if err != nil {
		return 0
	}
	return n
}

// release drops a dead thread's owned resources.
func (s *Scheduler) release(t *Thread) {
	t.stack = nil
	t.tls = nil
	t.proc = nil
	t.sp = 0
	s.counters.reaps.Add(1)
}

// RunReaper is the body of the cleanup thread: an endless low-priority
// loop that reaps, yields when there was nothing to reap, and falls back
// to the halt hook when yielding produced no reschedule (nothing else is
// runnable).
//
// Run it from the context of a dedicated thread spawned near
// PriorityIdle. StopReaper ends the loop for orderly teardown in hosted
// use; a kernel simply never stops it.
func (s *Scheduler) RunReaper() {
	s.reaping.StoreRelease(true)
	for s.reaping.LoadAcquire() {
		if s.Reap() > 0 {
			continue
		}
		if !s.Yield() {
			s.halt()
		}
	}
}

// StopReaper makes RunReaper return after its current iteration.
func (s *Scheduler) StopReaper() {
	s.reaping.StoreRelease(false)
}
