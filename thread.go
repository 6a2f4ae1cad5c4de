// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import "code.hybscloud.com/atomix"

// ThreadID identifies a thread. IDs are scheduler-assigned, monotonically
// increasing and never reused.
type ThreadID uint64

// Priority is a thread's scheduling class, 0 through NumPriorities-1.
// Larger values are more urgent: the scheduler always serves the highest
// non-empty class first and round-robins within a class.
type Priority uint8

// NumPriorities is the number of scheduling classes.
const NumPriorities = 64

// Common priority levels. Any value below NumPriorities is valid; these
// are the conventional operating points.
const (
	PriorityIdle   Priority = 0
	PriorityLow    Priority = 16
	PriorityNormal Priority = 32
	PriorityHigh   Priority = 48
	PriorityTop    Priority = NumPriorities - 1
)

// State is a thread's lifecycle state.
//
// Transitions: Ready → Running on selection by reschedule, Running → Ready
// on preemption or plain yield, Running → Sleeping on a honored sleep
// request, Sleeping → Ready on WakeUp. A thread that exits leaves the
// state machine entirely: it lives on the exited queue until the reaper
// captures it, and its State field is no longer maintained.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateSleeping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	default:
		return "invalid"
	}
}

// Thread is the control block for one schedulable unit of execution.
//
// A Thread embeds its own queue Link, so moving it between ready classes,
// the sleeper table and the exited queue never allocates. The control
// block is mutated only by the scheduler (state, stamped priority,
// routing) and, at construction time, by the owning code path.
type Thread struct {
	id       ThreadID
	entry    uintptr
	sp       uintptr
	pageRoot uintptr
	state    atomix.Int32
	prio     atomix.Int32
	stack    []byte
	tls      []byte
	proc     *Process
	link     Link[Thread]
}

// threadLink is the Link accessor shared by every thread queue.
func threadLink(t *Thread) *Link[Thread] { return &t.link }

// ID returns the thread's identifier.
func (t *Thread) ID() ThreadID { return t.id }

// Entry returns the address execution starts at when the thread first
// runs. Zero for the bootstrap thread, which was already running.
func (t *Thread) Entry() uintptr { return t.entry }

// State returns the thread's lifecycle state. Meaningless once the thread
// has exited.
func (t *Thread) State() State { return State(t.state.LoadAcquire()) }

func (t *Thread) setState(s State) { t.state.Store(int32(s)) }

// Priority returns the thread's stamped priority: the class it will be
// queued under at its next transition out of Running. Reschedule restamps
// it from the scheduler's effective-priority cell, which is how a live
// ChangeCurrentPriority takes hold.
func (t *Thread) Priority() Priority { return Priority(t.prio.LoadAcquire()) }

func (t *Thread) setPriority(p Priority) { t.prio.Store(int32(p)) }

// SP returns the thread's saved stack pointer.
func (t *Thread) SP() uintptr { return t.sp }

// Process returns the owning process, or nil for kernel threads.
func (t *Thread) Process() *Process { return t.proc }

// NewThread constructs a kernel thread with its own mapped stack.
//
// entry is the address execution starts at once the platform switcher
// first resumes the thread; the scheduler itself only books it. Panics on
// a priority out of range or a non-positive stack size (caller bugs), and
// on stack mapping failure (resource exhaustion is fatal, never retried).
func (s *Scheduler) NewThread(entry uintptr, prio Priority, stackBytes int) *Thread {
	return s.newThread(nil, entry, prio, stackBytes)
}

// NewProcessThread constructs a thread belonging to p, running in p's
// address space. A process with a TLS size also gets a thread-local block
// mapped here. Same fatal conditions as NewThread.
func (s *Scheduler) NewProcessThread(p *Process, entry uintptr, prio Priority, stackBytes int) *Thread {
	if p == nil {
		panic("ksched: thread for nil process")
	}
	return s.newThread(p, entry, prio, stackBytes)
}

func (s *Scheduler) newThread(p *Process, entry uintptr, prio Priority, stackBytes int) *Thread {
	if prio >= NumPriorities {
		panic("ksched: priority out of range")
	}
	if stackBytes <= 0 {
		panic("ksched: stack size must be positive")
	}
	stack, top, err := s.stacks.MapStack(stackBytes)
	if err != nil {
		panic("ksched: stack mapping failed: " + err.Error())
	}
	t := &Thread{
		id:    ThreadID(s.nextID.AddAcqRel(1)),
		entry: entry,
		sp:    top,
		stack: stack,
	}
	t.setState(StateReady)
	t.setPriority(prio)
	if p != nil {
		t.proc = p
		t.pageRoot = p.pageRoot
		if p.tlsSize > 0 {
			tls, _, err := s.stacks.MapStack(p.tlsSize)
			if err != nil {
				panic("ksched: tls mapping failed: " + err.Error())
			}
			t.tls = tls
		}
	}
	return t
}
