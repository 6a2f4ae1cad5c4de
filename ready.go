// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// readyTable holds the runnable threads, one FIFO class per priority.
//
// Producers (spawn, wake, requeue) may run concurrently with each other
// and with the single consumer (reschedule, which pops under the
// scheduler lock). Each class carries an exact size counter and the table
// keeps an advisory bitmap of non-empty classes so the consumer finds the
// highest one with a single bit scan instead of walking all 64 counters.
//
// Ordering protocol: a producer increments the class size before
// publishing the thread and sets the class bit after. The consumer
// decrements after a successful pop and clears the bit only after
// re-checking the size, re-setting it when a producer slipped in between.
// The bitmap may therefore briefly overstate but never understates for
// long; the size counter is the authority.
type readyTable struct {
	_       pad
	bitmap  atomix.Uint64
	_       padShort
	classes [NumPriorities]readyClass
}

type readyClass struct {
	size atomix.Int64
	_    padShort
	q    IntrusiveMPSC[Thread]
}

func (rt *readyTable) init() *readyTable {
	for i := range rt.classes {
		rt.classes[i].q.init(threadLink)
	}
	return rt
}

// push queues t under its stamped priority class.
func (rt *readyTable) push(t *Thread) {
	p := t.Priority()
	class := &rt.classes[p]
	class.size.AddAcqRel(1)
	class.q.Enqueue(t)
	rt.setBit(p)
}

// popHighest removes and returns the oldest thread of the highest
// non-empty class, or nil when nothing is runnable. Single consumer.
func (rt *readyTable) popHighest() *Thread {
	for {
		m := rt.bitmap.LoadAcquire()
		if m == 0 {
			return nil
		}
		p := Priority(63 - bits.LeadingZeros64(m))
		class := &rt.classes[p]
		if class.size.LoadAcquire() == 0 {
			// Stale bit: the class drained since it was set.
			rt.clearBit(p)
			if class.size.LoadAcquire() > 0 {
				rt.setBit(p)
			}
			continue
		}
		sw := spin.Wait{}
		for {
			t, err := class.q.Dequeue()
			if err == nil {
				if class.size.AddAcqRel(-1) == 0 {
					rt.clearBit(p)
					if class.size.LoadAcquire() > 0 {
						rt.setBit(p)
					}
				}
				return t
			}
			// The size said an element is coming: a producer sits
			// between its counter increment and the publish. Wait it
			// out; the window is two stores long.
			if class.size.LoadAcquire() == 0 {
				break
			}
			sw.Once()
		}
	}
}

// runnable returns the total number of queued threads across classes.
func (rt *readyTable) runnable() int64 {
	var n int64
	for i := range rt.classes {
		n += rt.classes[i].size.LoadAcquire()
	}
	return n
}

func (rt *readyTable) setBit(p Priority) {
	bit := uint64(1) << p
	for {
		m := rt.bitmap.LoadRelaxed()
		if m&bit != 0 {
			return
		}
		if rt.bitmap.CompareAndSwapAcqRel(m, m|bit) {
			return
		}
	}
}

func (rt *readyTable) clearBit(p Priority) {
	bit := uint64(1) << p
	for {
		m := rt.bitmap.LoadRelaxed()
		if m&bit == 0 {
			return
		}
		if rt.bitmap.CompareAndSwapAcqRel(m, m&^bit) {
			return
		}
	}
}
