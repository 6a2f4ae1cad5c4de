// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ksched provides kernel-style thread scheduling primitives.
//
// The package offers three building blocks and a scheduler that
// composes them:
//
//   - QLock: FIFO queue spinlock guarding a value of type T
//   - LazyQLock: QLock with one-shot lazy initialization
//   - IntrusiveMPSC: unbounded multi-producer single-consumer queue
//     with caller-embedded links
//   - Scheduler: preemptive priority scheduler over 64 ready classes
//
// # Quick Start
//
// Build a scheduler, boot the calling thread, spawn work:
//
//	s := ksched.New().Build()
//	boot := s.Boot(ksched.PriorityNormal)
//
//	t := s.NewThread(entryPC, ksched.PriorityHigh, 64<<10)
//	s.Spawn(t)
//
//	for s.Yield() {
//	    // ran someone else, came back
//	}
//
// The builder accepts platform hooks for real integrations:
//
//	s := ksched.New().
//	    Stacks(pageAlloc).
//	    Interrupts(localAPIC).
//	    Switcher(contextSwitch).
//	    Tick(time.Millisecond).
//	    Build()
//
// Every hook has a hosted default, so the zero configuration runs as an
// ordinary Go library.
//
// # Queue Locks
//
// [QLock] is an MCS-style spinlock: each waiter spins on its own
// [QNode], so handoff is FIFO and contention stays off the lock word.
// The lock owns a value of type T reachable only through a held
// [Guard]:
//
//	l := ksched.NewQLock(map[string]int{})
//
//	var node ksched.QNode
//	g := l.Lock(&node)
//	(*g.Get())["requests"]++
//	g.Unlock()
//
// The node must stay alive and unmoved while queued; stack allocation
// in the locking function is the intended pattern. TryLock acquires
// only when the lock is free:
//
//	if g, ok := l.TryLock(&node); ok {
//	    defer g.Unlock()
//	    // uncontended fast path
//	}
//
// [LazyQLock] adds one-shot initialization for values that do not exist
// at construction time:
//
//	var cur ksched.LazyQLock[*Thread]
//	cur.Init(bootThread)          // first caller wins
//	cur.WithLocked(func(t **Thread) {
//	    // exclusive access to the slot
//	})
//
// Lock and TryLock panic before Init; use LockIfInit when
// initialization is not guaranteed.
//
// # Intrusive Queues
//
// [IntrusiveMPSC] never allocates on Enqueue. Elements embed a
// [Link] and the queue is constructed with an accessor for it:
//
//	type job struct {
//	    link ksched.Link[job]
//	    seq  int
//	}
//
//	q := ksched.NewIntrusiveMPSC(func(j *job) *ksched.Link[job] {
//	    return &j.link
//	})
//
//	q.Enqueue(&job{seq: 1})   // any goroutine
//	j, err := q.Dequeue()     // one consumer at a time
//
// Enqueue is lock-free and safe from any number of producers,
// including interrupt-style reentrant callers. Dequeue returns
// [ErrWouldBlock] when the queue is empty and [ErrBusy] when another
// consumer holds the consumer side. An element may be enqueued again
// once Dequeue has returned it, and on only one queue at a time.
//
// # Scheduling
//
// The scheduler keeps one ready queue per priority (0 lowest, 63
// highest), a sleeper map, and an exited-thread queue. Decision and
// application are split: [Scheduler.Reschedule] only picks the next
// thread and returns a [Switch] descriptor; [Scheduler.Yield],
// [Scheduler.Sleep], and [Scheduler.Exit] decide and then apply
// through the configured [Switcher].
//
//	sw, ok := s.Reschedule()
//	if ok {
//	    // interrupts are disabled here; the apply path
//	    // must save the old SP, load the new one, and
//	    // restore sw.IRQState when it is safe
//	}
//
// A thread leaves the processor in exactly one direction per switch:
// back to its ready class, into the sleeper map (Sleep), or onto the
// exited queue (Exit). WakeUp moves a sleeper back to the ready class
// of its stamped priority. Exited threads hold resources until
// [Scheduler.Reap] or the background reaper frees them.
//
// Preemption is driven by an external [TickSource]:
//
//	s.SetScheduling(true)   // arm the tick source
//	...
//	s.SetScheduling(false)  // quiesce before teardown
//
// The hosted tick source fires a wall-clock ticker on a locked OS
// thread, optionally pinned to a CPU.
//
// # Error Handling
//
// Operations that cannot proceed return [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox] for ecosystem consistency. The consumer-side
// collision on an intrusive queue returns [ErrBusy].
//
//	backoff := iox.Backoff{}
//	for {
//	    j, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        handle(j)
//	        continue
//	    }
//	    if !ksched.IsWouldBlock(err) && !ksched.IsBusy(err) {
//	        return err // unexpected
//	    }
//	    backoff.Wait()
//	}
//
// For semantic classification:
//
//	ksched.IsWouldBlock(err)  // queue empty
//	ksched.IsBusy(err)        // consumer side already claimed
//	ksched.IsSemantic(err)    // control flow signal
//	ksched.IsNonFailure(err)  // nil or control flow signal
//
// # Thread Safety
//
// QLock and LazyQLock are safe from any goroutine. IntrusiveMPSC
// allows concurrent producers but a single consumer at a time; the
// busy flag turns a second concurrent consumer into [ErrBusy] instead
// of corruption. Scheduler operations that run "as the current thread"
// (Yield, Sleep, Exit, ChangeCurrentPriority) assume one caller at a
// time per scheduler, which is what the self-lock on the current
// thread slot enforces. Spawn and WakeUp are safe from anywhere,
// including the tick path.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm
// verification. It tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through atomic memory orderings on separate variables.
//
// The queue lock and the intrusive queue protect non-atomic fields with
// acquire-release edges; the algorithms are correct, but the detector
// may report false positives on them. Tests incompatible with race
// detection are excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause loops,
// [github.com/sugawarayuuta/sonnet] for statistics encoding, and
// [golang.org/x/sys] for tick-thread CPU affinity.
package ksched
