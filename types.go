// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

// Switch describes one context switch decided by Reschedule.
//
// Reschedule only decides; it never performs the switch. Applying the
// descriptor (saving the outgoing stack pointer through OldSP, loading
// NewSP and the address-space root) is the platform Switcher's single
// unsafe operation, and the caller must invoke it exactly once per
// descriptor with interrupts still disabled. Splitting decision from
// application keeps the bookkeeping testable without real stack switches.
//
// Example (a timer interrupt handler):
//
//	sw, ok := sched.Reschedule()
//	if ok {
//	    switcher.Apply(sw)       // the raw stack/address-space swap
//	    irq.Restore(sw.IRQState) // interrupts were left disabled
//	}
type Switch struct {
	// OldSP is the slot that receives the outgoing thread's stack
	// pointer at the moment of the switch.
	OldSP *uintptr
	// NewSP is the incoming thread's saved stack pointer.
	NewSP uintptr
	// PageRoot is the incoming thread's address-space root. Zero means
	// keep the current address space (kernel threads).
	PageRoot uintptr
	// IRQState is the interrupt state token saved when Reschedule
	// disabled interrupts. Restore it after applying the switch.
	IRQState uintptr
}

// StackMapper allocates and maps thread stacks.
//
// MapStack maps a region of at least size bytes and returns the region
// together with the initial stack-top pointer (16-byte aligned, one past
// the highest usable address). Mapping failure is fatal to thread
// construction; the scheduler never retries.
//
// The hosted default maps stacks on the Go heap. A kernel integration
// backs this with its page allocator.
type StackMapper interface {
	MapStack(size int) (region []byte, top uintptr, err error)
}

// IRQ masks and unmasks interrupt delivery around the non-preemptible
// bookkeeping window.
//
// Disable masks interrupts and returns an opaque token of the previous
// state; Restore reinstates exactly that state. Calls nest.
//
// The hosted default only tracks nesting depth (there is no interrupt
// delivery to mask in a process); a kernel integration maps these to the
// architecture's interrupt flag.
type IRQ interface {
	Disable() (state uintptr)
	Restore(state uintptr)
}

// Switcher applies a Switch descriptor.
//
// Apply is the single architecture-specific operation that saves the
// outgoing stack pointer through OldSP and resumes on NewSP under
// PageRoot. It must be called exactly once per descriptor, with
// interrupts disabled. The hosted default records the call and touches
// nothing, which is what keeps scheduling decisions testable in-process.
type Switcher interface {
	Apply(sw Switch)
}

// TickSource delivers the periodic preemption tick.
//
// Start begins delivering ticks to the given function until Stop. The
// scheduler arms and disarms the source through SetScheduling; tick
// acknowledgment (end-of-interrupt on hardware) is the source's own
// concern. The hosted default runs a ticker goroutine on a locked OS
// thread, optionally pinned to one CPU.
type TickSource interface {
	Start(tick func())
	Stop()
}
