// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"time"
	"unsafe"
)

// defaultTick is the hosted preemption interval when none is configured.
const defaultTick = 10 * time.Millisecond

// Options configures scheduler construction.
type Options struct {
	// Platform seams; nil selects the hosted default.
	stacks   StackMapper
	irq      IRQ
	switcher Switcher
	ticks    TickSource
	halt     func()

	// Hosted tick source tuning.
	tick time.Duration
	pin  int // CPU for the tick thread, -1 for unpinned
}

// Builder creates schedulers with fluent configuration.
//
// Every seam has a hosted default, so the zero configuration runs
// entirely in-process:
//
//	sched := ksched.New().Build()
//
// A kernel integration replaces the seams with its platform pieces:
//
//	sched := ksched.New().
//	    Stacks(pageAlloc).
//	    Interrupts(apic).
//	    Switcher(arch).
//	    Ticks(apicTimer).
//	    Build()
type Builder struct {
	opts Options
}

// New creates a scheduler builder.
func New() *Builder {
	return &Builder{opts: Options{tick: defaultTick, pin: -1}}
}

// Stacks sets the stack mapper used by thread construction.
func (b *Builder) Stacks(m StackMapper) *Builder {
	b.opts.stacks = m
	return b
}

// Interrupts sets the interrupt mask bracketing the reschedule window.
func (b *Builder) Interrupts(i IRQ) *Builder {
	b.opts.irq = i
	return b
}

// Switcher sets the context-switch primitive dispatch applies.
func (b *Builder) Switcher(sw Switcher) *Builder {
	b.opts.switcher = sw
	return b
}

// Ticks sets the periodic preemption source armed by SetScheduling.
func (b *Builder) Ticks(ts TickSource) *Builder {
	b.opts.ticks = ts
	return b
}

// Tick sets the hosted tick source's interval. Ignored when Ticks was
// given. Panics if d is not positive.
func (b *Builder) Tick(d time.Duration) *Builder {
	if d <= 0 {
		panic("ksched: tick interval must be positive")
	}
	b.opts.tick = d
	return b
}

// PinTo pins the hosted tick source's OS thread to the given CPU.
// Ignored when Ticks was given; -1 leaves it unpinned.
func (b *Builder) PinTo(cpu int) *Builder {
	if cpu < -1 {
		panic("ksched: invalid cpu")
	}
	b.opts.pin = cpu
	return b
}

// Halt sets the reaper's nothing-runnable fallback.
func (b *Builder) Halt(fn func()) *Builder {
	b.opts.halt = fn
	return b
}

// Build assembles the scheduler, filling hosted defaults for every seam
// left unset. The result is unbooted; call Boot before scheduling.
func (b *Builder) Build() *Scheduler {
	o := b.opts
	if o.stacks == nil {
		o.stacks = heapStacks{}
	}
	if o.irq == nil {
		o.irq = &hostedIRQ{}
	}
	if o.switcher == nil {
		o.switcher = nopSwitcher{}
	}
	if o.ticks == nil {
		o.ticks = newHostedTicks(o.tick, o.pin)
	}
	if o.halt == nil {
		o.halt = hostedHalt
	}
	s := &Scheduler{
		stacks:   o.stacks,
		irq:      o.irq,
		switcher: o.switcher,
		ticks:    o.ticks,
		halt:     o.halt,
	}
	s.ready.init()
	s.sleepers.init()
	s.exited.init(threadLink)
	return s
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
