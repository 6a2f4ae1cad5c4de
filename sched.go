// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// Scheduler owns the currently running thread and decides every switch.
//
// The current thread's control block sits behind a LazyQLock initialized
// exactly once by Boot. Reschedule takes that lock with TryLock: a caller
// that finds it held (a timer tick landing inside an in-flight reschedule)
// reports "no reschedule" instead of deadlocking. All other scheduler
// structures synchronize on their own: the ready table through its atomic
// classes, the sleeper table through its own QLock, the exited queue
// through its consumer flag. Nothing takes a kernel-wide lock.
//
// Construct with New().Build(), then Boot. Methods named for the current
// thread (Yield, Sleep, Exit, ChangeCurrentPriority) act on whichever
// thread the calling context represents.
type Scheduler struct {
	_          pad
	cur        LazyQLock[*Thread]
	effPrio    atomix.Uint64 // live priority of the running thread
	_          padShort
	exitReq    atomix.Uint64 // sticky: current thread requested exit
	_          padShort
	sleepReq   atomix.Uint64 // sticky: current thread requested sleep
	_          padShort
	armed      atomix.Uint64 // tick source armed
	_          padShort
	nextID     atomix.Uint64
	nextProcID atomix.Uint64
	reaping    atomix.Bool
	_          pad
	ready      readyTable
	sleepers   sleeperTable
	exited     IntrusiveMPSC[Thread]
	counters   schedCounters
	stacks     StackMapper
	irq        IRQ
	switcher   Switcher
	ticks      TickSource
	halt       func()
}

// Boot installs the calling context as the bootstrap thread and returns
// its control block.
//
// The bootstrap thread owns no mapped stack; it represents whatever stack
// the caller is already running on. Boot must happen exactly once, before
// any Reschedule, Spawn or SetScheduling. Panics on a second call or a
// priority out of range.
func (s *Scheduler) Boot(prio Priority) *Thread {
	if prio >= NumPriorities {
		panic("ksched: priority out of range")
	}
	if s.cur.Initialized() {
		panic("ksched: scheduler already booted")
	}
	t := &Thread{id: ThreadID(s.nextID.AddAcqRel(1))}
	t.setState(StateRunning)
	t.setPriority(prio)
	s.effPrio.StoreRelease(uint64(prio))
	s.cur.Init(t)
	return t
}

// Booted reports whether Boot has completed.
func (s *Scheduler) Booted() bool {
	return s.cur.Initialized()
}

// Reschedule selects the next thread and describes the switch to it.
//
// On success the returned descriptor is valid, interrupts are left
// disabled, and exactly one of the following happened to the outgoing
// thread: it was routed to the exited queue (exit was requested), filed
// in the sleeper table (sleep was requested), or requeued at the back of
// its priority class. The caller must apply the descriptor exactly once
// and then restore interrupts from sw.IRQState.
//
// Returns ok == false, with nothing changed, when the scheduler lock is
// already held (reschedule is in flight elsewhere) or when no thread is
// ready. Neither is an error. Panics before Boot.
func (s *Scheduler) Reschedule() (sw Switch, ok bool) {
	locked := s.cur.TryWithLocked(func(cur **Thread) {
		irq := s.irq.Disable()
		next := s.ready.popHighest()
		if next == nil {
			s.irq.Restore(irq)
			return
		}
		old := *cur
		*cur = next

		// The effective cell takes the incoming thread's stored
		// priority; the outgoing thread is stamped with whatever the
		// cell held, which is how a live ChangeCurrentPriority decides
		// the class it requeues under.
		stamped := s.exchangePriority(next.Priority())
		old.setPriority(stamped)

		exit := s.exitReq.CompareAndSwapAcqRel(1, 0)
		sleep := s.sleepReq.CompareAndSwapAcqRel(1, 0)

		next.setState(StateRunning)
		switch {
		case exit:
			// Resources are reclaimed by the reaper, never here:
			// freeing inside the reschedule window is what the
			// exited queue exists to avoid.
			s.exited.Enqueue(old)
			s.counters.exits.Add(1)
		case sleep:
			old.setState(StateSleeping)
			s.sleepers.insert(old)
			s.counters.sleeps.Add(1)
		default:
			old.setState(StateReady)
			s.ready.push(old)
		}

		sw = Switch{
			OldSP:    &old.sp,
			NewSP:    next.sp,
			PageRoot: next.pageRoot,
			IRQState: irq,
		}
		ok = true
		s.counters.reschedules.Add(1)
	})
	if !locked || !ok {
		return Switch{}, false
	}
	return sw, true
}

// exchangePriority atomically swaps the effective-priority cell to p and
// returns the previous value.
func (s *Scheduler) exchangePriority(p Priority) Priority {
	v := uint64(p)
	for {
		old := s.effPrio.LoadRelaxed()
		if s.effPrio.CompareAndSwapAcqRel(old, v) {
			return Priority(old)
		}
	}
}

// dispatch runs one full reschedule-apply-restore sequence.
func (s *Scheduler) dispatch() bool {
	sw, ok := s.Reschedule()
	if !ok {
		return false
	}
	s.switcher.Apply(sw)
	s.counters.switches.Add(1)
	s.irq.Restore(sw.IRQState)
	return true
}

// preempt is the tick entry point.
func (s *Scheduler) preempt() {
	if s.dispatch() {
		s.counters.preemptions.Add(1)
	}
}

// Yield gives up the processor voluntarily. Returns true iff a reschedule
// actually occurred; false means the calling thread simply keeps running
// (nothing else was ready, or a reschedule was already in flight).
func (s *Scheduler) Yield() bool {
	return s.dispatch()
}

// Sleep marks the current thread as wanting to sleep and forces an
// immediate reschedule. The request flag is sticky: if no reschedule
// could happen right now, the next one honors it. The sleeping thread
// returns to the ready queues only through WakeUp.
func (s *Scheduler) Sleep() {
	s.sleepReq.StoreRelease(1)
	s.dispatch()
}

// Exit marks the current thread for termination and forces a reschedule,
// retrying until one occurs; an exiting thread cannot keep running. Once
// Exit returns, the control block belongs to the exited queue and the
// reaper; the caller must not touch scheduler state for it again.
func (s *Scheduler) Exit() {
	s.exitReq.StoreRelease(1)
	if s.dispatch() {
		return
	}
	backoff := iox.Backoff{}
	for !s.dispatch() {
		backoff.Wait()
	}
}

// WakeUp moves the sleeping thread with the given ID back to its priority
// class. Reports whether the thread was found; waking an ID that is not
// sleeping is an ordinary no-op, not an error.
func (s *Scheduler) WakeUp(id ThreadID) bool {
	t := s.sleepers.remove(id)
	if t == nil {
		return false
	}
	t.setState(StateReady)
	s.ready.push(t)
	s.counters.wakes.Add(1)
	return true
}

// ChangeCurrentPriority rewrites the running thread's effective priority.
//
// Only the cell changes here; no queue is touched. The new value takes
// hold at the next reschedule, which stamps it onto the thread and picks
// its requeue class from it. Panics on a value out of range.
func (s *Scheduler) ChangeCurrentPriority(p Priority) {
	if p >= NumPriorities {
		panic("ksched: priority out of range")
	}
	s.exchangePriority(p)
}

// Spawn makes t runnable. The thread joins the back of its priority
// class.
func (s *Scheduler) Spawn(t *Thread) {
	if t == nil {
		panic("ksched: spawn of nil thread")
	}
	t.setState(StateReady)
	s.ready.push(t)
	s.counters.spawns.Add(1)
}

// CurrentThreadID returns the running thread's ID.
//
// This is a Force read of the current-thread slot: safe from the running
// thread's own context (a thread observing its own identity) and from any
// caller that has otherwise established exclusivity. Panics before Boot.
func (s *Scheduler) CurrentThreadID() ThreadID {
	return (*s.cur.Force()).id
}

// CurrentProcess returns the running thread's process, or nil for kernel
// threads. Same Force-read contract as CurrentThreadID.
func (s *Scheduler) CurrentProcess() *Process {
	return (*s.cur.Force()).proc
}

// WithCurrent runs fn with the current-thread lock held, passing the
// running thread's control block. While fn runs, no reschedule can occur;
// a tick that lands meanwhile is dropped by the try-acquire. Blocks until
// the lock is available. Panics before Boot.
func (s *Scheduler) WithCurrent(fn func(t *Thread)) {
	s.cur.WithLocked(func(cur **Thread) {
		fn(*cur)
	})
}

// SetScheduling arms (true) or disarms (false) the periodic tick source
// driving preemption. Idempotent: repeated calls with the same value do
// nothing. Boot must have completed before arming.
func (s *Scheduler) SetScheduling(enable bool) {
	if enable {
		if !s.armed.CompareAndSwapAcqRel(0, 1) {
			return
		}
		s.ticks.Start(s.preempt)
		return
	}
	if !s.armed.CompareAndSwapAcqRel(1, 0) {
		return
	}
	s.ticks.Stop()
}
